package models

import (
	"encoding/json"
	"time"
)

// Species lifecycle statuses. Transitions between them are owned by
// services.LifecycleService; nothing else writes the status column.
const (
	SpeciesStatusDraft     = "draft"
	SpeciesStatusInReview  = "in_review"
	SpeciesStatusPublished = "published"
	SpeciesStatusRejected  = "rejected"
)

// Species represents a species record in any lifecycle state, from first
// draft through publication. The botanical attributes (stratum, life cycle,
// height, uses, ...) are stored as an opaque JSON bag; the API validates
// presence and ownership, not botany.
type Species struct {
	SpeciesID      uint            `gorm:"primaryKey;column:species_id" json:"species_id"`
	Slug           string          `gorm:"column:slug;uniqueIndex" json:"slug"`
	ScientificName string          `gorm:"column:scientific_name" json:"scientific_name"`
	Attributes     json.RawMessage `gorm:"column:attributes;type:json" json:"attributes,omitempty"`
	Status         string          `gorm:"column:status;index" json:"status"`
	CreatedBy      uint            `gorm:"column:created_by;index" json:"created_by"`

	// ReviewCycle starts at 1 and is bumped on every resubmission and
	// revision request. Reviews are stamped with the cycle they belong to,
	// so consensus never counts decisions from an earlier cycle.
	ReviewCycle int `gorm:"column:review_cycle;default:1" json:"review_cycle"`

	SubmittedAt         *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	RevisionRequestedBy *uint      `gorm:"column:revision_requested_by" json:"revision_requested_by,omitempty"`
	RevisionRequestedAt *time.Time `gorm:"column:revision_requested_at" json:"revision_requested_at,omitempty"`
	PublishedAt         *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`

	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`

	// Relations
	Creator     *User               `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CommonNames []SpeciesCommonName `gorm:"foreignKey:SpeciesID" json:"common_names,omitempty"`
	Photos      []SpeciesPhoto      `gorm:"foreignKey:SpeciesID" json:"photos,omitempty"`
}

// SpeciesCommonName is one entry of the ordered, non-empty common-name list.
type SpeciesCommonName struct {
	CommonNameID uint   `gorm:"primaryKey;column:common_name_id" json:"common_name_id"`
	SpeciesID    uint   `gorm:"column:species_id;index" json:"species_id"`
	Name         string `gorm:"column:name" json:"name"`
	DisplayOrder int    `gorm:"column:display_order" json:"display_order"`
}

// TableName overrides
func (Species) TableName() string {
	return "species"
}

func (SpeciesCommonName) TableName() string {
	return "species_common_names"
}

// InRevision reports whether the record sits in the review queue because of a
// revision request rather than a fresh submission.
func (s *Species) InRevision() bool {
	return s.Status == SpeciesStatusInReview && s.RevisionRequestedBy != nil
}
