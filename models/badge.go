package models

// Badge is a static catalog entry. Thresholds are evaluated against the
// user's stats snapshot; every key must be satisfied for the badge to fire.
// Supported keys: xp, level, species_published, reviews_given, photos_approved.
type Badge struct {
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Threshold   map[string]int64 `json:"threshold"`
}

// BadgeCatalog holds every badge the system can award.
var BadgeCatalog = []Badge{
	{
		Code:        "FIRST_SPROUT",
		Name:        "First Sprout",
		Description: "Submitted your first species for review",
		Threshold:   map[string]int64{"xp": 10},
	},
	{
		Code:        "FIELD_BOTANIST",
		Name:        "Field Botanist",
		Description: "Got a species published",
		Threshold:   map[string]int64{"species_published": 1},
	},
	{
		Code:        "TAXONOMIST",
		Name:        "Taxonomist",
		Description: "Ten published species",
		Threshold:   map[string]int64{"species_published": 10},
	},
	{
		Code:        "KEEN_EYE",
		Name:        "Keen Eye",
		Description: "Reviewed ten submissions",
		Threshold:   map[string]int64{"reviews_given": 10},
	},
	{
		Code:        "CURATOR",
		Name:        "Curator",
		Description: "Fifty reviews given",
		Threshold:   map[string]int64{"reviews_given": 50},
	},
	{
		Code:        "SHUTTERBUG",
		Name:        "Shutterbug",
		Description: "Ten photos accepted into the encyclopedia",
		Threshold:   map[string]int64{"photos_approved": 10},
	},
	{
		Code:        "SEASONED_GROWER",
		Name:        "Seasoned Grower",
		Description: "Reached level 5",
		Threshold:   map[string]int64{"level": 5},
	},
	{
		Code:        "LIVING_LIBRARY",
		Name:        "Living Library",
		Description: "Reached level 10",
		Threshold:   map[string]int64{"level": 10},
	},
}

// BadgeByCode looks up a catalog entry.
func BadgeByCode(code string) (Badge, bool) {
	for _, b := range BadgeCatalog {
		if b.Code == code {
			return b, true
		}
	}
	return Badge{}, false
}
