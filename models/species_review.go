package models

import "time"

// Review decisions.
const (
	ReviewDecisionApproved = "approved"
	ReviewDecisionRejected = "rejected"
)

// RequiredApprovals is the number of approving reviewers needed, with zero
// rejections, before a species is published.
const RequiredApprovals = 2

// SpeciesReview is one reviewer's decision on a species within a single
// review cycle. The unique index makes a second decision by the same reviewer
// in the same cycle a constraint violation, so duplicate submissions fail
// even when racing.
type SpeciesReview struct {
	ReviewID    uint      `gorm:"primaryKey;column:review_id" json:"review_id"`
	SpeciesID   uint      `gorm:"column:species_id;uniqueIndex:uq_review_per_cycle" json:"species_id"`
	ReviewerID  uint      `gorm:"column:reviewer_id;uniqueIndex:uq_review_per_cycle" json:"reviewer_id"`
	ReviewCycle int       `gorm:"column:review_cycle;uniqueIndex:uq_review_per_cycle" json:"review_cycle"`
	Decision    string    `gorm:"column:decision" json:"decision"`
	Comments    *string   `gorm:"column:comments" json:"comments,omitempty"`
	ReviewedAt  time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`

	Reviewer *User `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
}

// TableName specifies the table name for SpeciesReview.
func (SpeciesReview) TableName() string {
	return "species_reviews"
}

// ReviewStatus is the consensus snapshot for the current review cycle.
type ReviewStatus struct {
	SpeciesID   uint            `json:"species_id"`
	ReviewCycle int             `json:"review_cycle"`
	Status      string          `json:"status"`
	Approvals   int             `json:"approvals"`
	Rejections  int             `json:"rejections"`
	Required    int             `json:"required"`
	Reviews     []SpeciesReview `json:"reviews"`
}
