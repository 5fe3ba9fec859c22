package services

import (
	"errors"
	"fmt"
	"time"

	"species-encyclopedia-api/models"

	"gorm.io/gorm"
)

// XPPoints maps an XP event kind to its fixed award.
var XPPoints = map[string]int64{
	models.XPEventSubmitted:        10,
	models.XPEventPhotoUploaded:    5,
	models.XPEventPhotoApproved:    10,
	models.XPEventSpeciesPublished: 50,
	models.XPEventReviewCompleted:  20,
}

// levelThresholds[i] is the cumulative XP required for level i+1. Past the
// table, every additional 500 XP is one more level.
var levelThresholds = []int64{0, 50, 150, 300, 500, 750, 1050, 1400, 1800, 2250}

const xpPerLevelBeyondTable = 500

// LevelForXP derives the level from cumulative XP. It is a pure, monotonic
// step function: the level is never stored, so it can never drift from XP.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		return len(levelThresholds) + int((xp-last)/xpPerLevelBeyondTable)
	}
	level := 1
	for i := 1; i < len(levelThresholds); i++ {
		if xp >= levelThresholds[i] {
			level = i + 1
		}
	}
	return level
}

var levelTitles = []struct {
	MinLevel int
	Title    string
}{
	{1, "Seedling"},
	{2, "Sprout"},
	{3, "Sapling"},
	{5, "Gardener"},
	{7, "Botanist"},
	{10, "Master Botanist"},
	{15, "Living Encyclopedia"},
}

// TitleForLevel returns the label for a level.
func TitleForLevel(level int) string {
	title := levelTitles[0].Title
	for _, lt := range levelTitles {
		if level >= lt.MinLevel {
			title = lt.Title
		}
	}
	return title
}

// Counter columns on user_stats that services may bump.
const (
	StatSpeciesPublished = "species_published"
	StatReviewsGiven     = "reviews_given"
	StatPhotosApproved   = "photos_approved"
)

var statColumns = map[string]bool{
	StatSpeciesPublished: true,
	StatReviewsGiven:     true,
	StatPhotosApproved:   true,
}

type GamificationService struct {
	DB *gorm.DB
}

func NewGamificationService(db *gorm.DB) *GamificationService {
	return &GamificationService{DB: db}
}

// ensureStats makes sure a user_stats row exists before it is incremented.
func (s *GamificationService) ensureStats(tx *gorm.DB, userID uint) error {
	var st models.UserStats
	err := tx.Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = models.UserStats{UserID: userID, CreatedAt: time.Now()}
		if err := tx.Create(&st).Error; err != nil {
			// A concurrent caller may have created the row first.
			var count int64
			tx.Model(&models.UserStats{}).Where("user_id = ?", userID).Count(&count)
			if count > 0 {
				return nil
			}
			return err
		}
		return nil
	}
	return err
}

// AwardXP records one XP event and atomically bumps the user's cumulative XP.
// The award is idempotent per (user, event, species): replaying a delivered
// side effect is a no-op, and two racing awards of distinct events both land
// because the increment runs in SQL rather than read-modify-write.
func (s *GamificationService) AwardXP(userID uint, event string, speciesID *uint) error {
	points, ok := XPPoints[event]
	if !ok {
		return ValidationError(fmt.Sprintf("unknown xp event '%s'", event))
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureStats(tx, userID); err != nil {
			return err
		}

		dup := tx.Model(&models.XPEvent{}).Where("user_id = ? AND event = ?", userID, event)
		if speciesID != nil {
			dup = dup.Where("species_id = ?", *speciesID)
		} else {
			dup = dup.Where("species_id IS NULL")
		}
		var count int64
		if err := dup.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		entry := models.XPEvent{
			UserID:    userID,
			Event:     event,
			SpeciesID: speciesID,
			Points:    points,
			CreatedAt: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			// The unique index caught a concurrent duplicate; the other
			// transaction owns the award.
			return Conflict("xp event already recorded")
		}

		return tx.Model(&models.UserStats{}).
			Where("user_id = ?", userID).
			UpdateColumn("xp", gorm.Expr("xp + ?", points)).Error
	})
}

// IncrementStat atomically bumps one of the whitelisted counters.
func (s *GamificationService) IncrementStat(userID uint, stat string) error {
	if !statColumns[stat] {
		return ValidationError(fmt.Sprintf("unknown stat '%s'", stat))
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureStats(tx, userID); err != nil {
			return err
		}
		return tx.Model(&models.UserStats{}).
			Where("user_id = ?", userID).
			UpdateColumn(stat, gorm.Expr(stat+" + 1")).Error
	})
}

func meetsThreshold(snapshot map[string]int64, threshold map[string]int64) bool {
	for key, required := range threshold {
		if snapshot[key] < required {
			return false
		}
	}
	return true
}

// CheckBadges evaluates the badge catalog against the user's current stats
// and records every newly earned badge. Idempotent: nothing new qualifying
// means nothing written, and the unique (user, badge) index absorbs
// concurrent invocations. Badges are never revoked, even if a stat regresses.
func (s *GamificationService) CheckBadges(userID uint) ([]string, error) {
	var st models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	snapshot := map[string]int64{
		"xp":                st.XP,
		"level":             int64(LevelForXP(st.XP)),
		"species_published": st.SpeciesPublished,
		"reviews_given":     st.ReviewsGiven,
		"photos_approved":   st.PhotosApproved,
	}

	var awarded []string
	for _, badge := range models.BadgeCatalog {
		if !meetsThreshold(snapshot, badge.Threshold) {
			continue
		}
		var count int64
		if err := s.DB.Model(&models.UserBadge{}).
			Where("user_id = ? AND badge_code = ?", userID, badge.Code).
			Count(&count).Error; err != nil {
			return awarded, err
		}
		if count > 0 {
			continue
		}
		earned := models.UserBadge{UserID: userID, BadgeCode: badge.Code, EarnedAt: time.Now()}
		if err := s.DB.Create(&earned).Error; err != nil {
			// Lost the race against a concurrent check; the badge exists.
			continue
		}
		awarded = append(awarded, badge.Code)
	}
	return awarded, nil
}

// Leaderboard kinds and periods.
const (
	LeaderboardXP           = "xp"
	LeaderboardContributors = "contributors"
	LeaderboardReviewers    = "reviewers"

	PeriodAllTime = "all_time"
	PeriodMonth   = "month"
)

// first_at only drives the ORDER BY; it is scanned as raw text because
// aggregate results lose the column's time affinity on some drivers.
type leaderboardRow struct {
	UserID    uint   `gorm:"column:user_id"`
	UserFname string `gorm:"column:user_fname"`
	UserLname string `gorm:"column:user_lname"`
	Score     int64  `gorm:"column:score"`
	FirstAt   string `gorm:"column:first_at"`
}

// GetLeaderboard returns at most limit entries, highest rank first. Ties are
// broken by earliest achievement, then user id, so the ordering is
// reproducible for the same inputs. All three rankings are derived reads over
// append-only data (the XP ledger, published species, review records).
func (s *GamificationService) GetLeaderboard(kind, period string, limit int) ([]models.LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var since *time.Time
	switch period {
	case PeriodAllTime, "":
	case PeriodMonth:
		t := time.Now().AddDate(0, -1, 0)
		since = &t
	default:
		return nil, ValidationError(fmt.Sprintf("unknown leaderboard period '%s'", period))
	}

	var rows []leaderboardRow
	var err error
	switch kind {
	case LeaderboardXP:
		query := `
			SELECT e.user_id, u.user_fname, u.user_lname,
			       SUM(e.points) AS score, MIN(e.created_at) AS first_at
			FROM xp_events e
			JOIN users u ON u.user_id = e.user_id
			WHERE u.delete_at IS NULL`
		args := []interface{}{}
		if since != nil {
			query += ` AND e.created_at >= ?`
			args = append(args, *since)
		}
		query += `
			GROUP BY e.user_id, u.user_fname, u.user_lname
			ORDER BY score DESC, first_at ASC, e.user_id ASC
			LIMIT ?`
		args = append(args, limit)
		err = s.DB.Raw(query, args...).Scan(&rows).Error

	case LeaderboardContributors:
		query := `
			SELECT sp.created_by AS user_id, u.user_fname, u.user_lname,
			       COUNT(*) AS score, MIN(sp.published_at) AS first_at
			FROM species sp
			JOIN users u ON u.user_id = sp.created_by
			WHERE sp.status = ? AND u.delete_at IS NULL`
		args := []interface{}{models.SpeciesStatusPublished}
		if since != nil {
			query += ` AND sp.published_at >= ?`
			args = append(args, *since)
		}
		query += `
			GROUP BY sp.created_by, u.user_fname, u.user_lname
			ORDER BY score DESC, first_at ASC, sp.created_by ASC
			LIMIT ?`
		args = append(args, limit)
		err = s.DB.Raw(query, args...).Scan(&rows).Error

	case LeaderboardReviewers:
		query := `
			SELECT r.reviewer_id AS user_id, u.user_fname, u.user_lname,
			       COUNT(*) AS score, MIN(r.reviewed_at) AS first_at
			FROM species_reviews r
			JOIN users u ON u.user_id = r.reviewer_id
			WHERE u.delete_at IS NULL`
		args := []interface{}{}
		if since != nil {
			query += ` AND r.reviewed_at >= ?`
			args = append(args, *since)
		}
		query += `
			GROUP BY r.reviewer_id, u.user_fname, u.user_lname
			ORDER BY score DESC, first_at ASC, r.reviewer_id ASC
			LIMIT ?`
		args = append(args, limit)
		err = s.DB.Raw(query, args...).Scan(&rows).Error

	default:
		return nil, ValidationError(fmt.Sprintf("unknown leaderboard kind '%s'", kind))
	}
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, models.LeaderboardEntry{
			Rank:      i + 1,
			UserID:    row.UserID,
			UserFname: row.UserFname,
			UserLname: row.UserLname,
			Score:     row.Score,
		})
	}
	return entries, nil
}

// EarnedBadge decorates a catalog badge with the time it was first earned.
type EarnedBadge struct {
	models.Badge
	EarnedAt time.Time `json:"earned_at"`
}

// GamificationProfile aggregates one contributor's standing.
type GamificationProfile struct {
	UserID           uint          `json:"user_id"`
	UserFname        string        `json:"user_fname"`
	UserLname        string        `json:"user_lname"`
	XP               int64         `json:"xp"`
	Level            int           `json:"level"`
	Title            string        `json:"title"`
	SpeciesPublished int64         `json:"species_published"`
	ReviewsGiven     int64         `json:"reviews_given"`
	PhotosApproved   int64         `json:"photos_approved"`
	Badges           []EarnedBadge `json:"badges"`
}

// GetUserProfile aggregates XP, derived level/title, badges and summary
// counters for one user.
func (s *GamificationService) GetUserProfile(userID uint) (*GamificationProfile, error) {
	var user models.User
	if err := s.DB.Where("user_id = ? AND delete_at IS NULL", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, err
	}

	var st models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&st).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		st = models.UserStats{UserID: userID}
	}

	var earned []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).Order("earned_at ASC").Find(&earned).Error; err != nil {
		return nil, err
	}

	badges := make([]EarnedBadge, 0, len(earned))
	for _, ub := range earned {
		if badge, ok := models.BadgeByCode(ub.BadgeCode); ok {
			badges = append(badges, EarnedBadge{Badge: badge, EarnedAt: ub.EarnedAt})
		}
	}

	level := LevelForXP(st.XP)
	return &GamificationProfile{
		UserID:           userID,
		UserFname:        user.UserFname,
		UserLname:        user.UserLname,
		XP:               st.XP,
		Level:            level,
		Title:            TitleForLevel(level),
		SpeciesPublished: st.SpeciesPublished,
		ReviewsGiven:     st.ReviewsGiven,
		PhotosApproved:   st.PhotosApproved,
		Badges:           badges,
	}, nil
}
