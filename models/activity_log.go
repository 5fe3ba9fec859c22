package models

import "time"

// Activity actions recorded by the activity log.
const (
	ActivityCreated           = "created"
	ActivityUpdated           = "updated"
	ActivitySubmitted         = "submitted"
	ActivityResubmitted       = "resubmitted"
	ActivityRevisionRequested = "revision_requested"
	ActivityReviewApproved    = "review_approved"
	ActivityReviewRejected    = "review_rejected"
	ActivitySpeciesPublished  = "species_published"
	ActivitySpeciesRejected   = "species_rejected"
	ActivitySpeciesDeleted    = "species_deleted"
	ActivityPhotoUploaded     = "photo_uploaded"
	ActivityPhotoApproved     = "photo_approved"
	ActivityPhotoRejected     = "photo_rejected"
)

// ActivityLog is the append-only record of lifecycle events. Rows are never
// updated or deleted.
type ActivityLog struct {
	ActivityID uint      `gorm:"primaryKey;column:activity_id" json:"activity_id"`
	UserID     uint      `gorm:"column:user_id;index" json:"user_id"`
	Action     string    `gorm:"column:action;index" json:"action"`
	SpeciesID  *uint     `gorm:"column:species_id;index" json:"species_id,omitempty"`
	Details    *string   `gorm:"column:details" json:"details,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Species *Species `gorm:"foreignKey:SpeciesID" json:"species,omitempty"`
}

// TableName specifies the table for ActivityLog.
func (ActivityLog) TableName() string {
	return "activity_logs"
}
