package models

import "time"

// XP event kinds. Each kind carries a fixed point value looked up by the
// gamification service.
const (
	XPEventSubmitted        = "submitted"
	XPEventPhotoUploaded    = "photo_uploaded"
	XPEventPhotoApproved    = "photo_approved"
	XPEventSpeciesPublished = "species_published"
	XPEventReviewCompleted  = "review_completed"
)

// UserStats is the denormalized per-user gamification row. XP only ever
// grows, via atomic increments. Level and title are derived from XP at read
// time and are deliberately not columns here, so they can never drift.
type UserStats struct {
	UserID           uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	XP               int64      `gorm:"column:xp;default:0" json:"xp"`
	SpeciesPublished int64      `gorm:"column:species_published;default:0" json:"species_published"`
	ReviewsGiven     int64      `gorm:"column:reviews_given;default:0" json:"reviews_given"`
	PhotosApproved   int64      `gorm:"column:photos_approved;default:0" json:"photos_approved"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

// XPEvent is the append-only XP ledger. The unique index makes an award
// idempotent per (user, event, species), so a retried publish side effect
// can never double-count.
type XPEvent struct {
	EventID   uint      `gorm:"primaryKey;column:event_id" json:"event_id"`
	UserID    uint      `gorm:"column:user_id;uniqueIndex:uq_xp_event" json:"user_id"`
	Event     string    `gorm:"column:event;uniqueIndex:uq_xp_event" json:"event"`
	SpeciesID *uint     `gorm:"column:species_id;uniqueIndex:uq_xp_event" json:"species_id,omitempty"`
	Points    int64     `gorm:"column:points" json:"points"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// UserBadge records a badge earned by a user. Earned once, never revoked.
type UserBadge struct {
	UserBadgeID uint      `gorm:"primaryKey;column:user_badge_id" json:"user_badge_id"`
	UserID      uint      `gorm:"column:user_id;uniqueIndex:uq_user_badge" json:"user_id"`
	BadgeCode   string    `gorm:"column:badge_code;uniqueIndex:uq_user_badge" json:"badge_code"`
	EarnedAt    time.Time `gorm:"column:earned_at" json:"earned_at"`
}

// TableName overrides
func (UserStats) TableName() string {
	return "user_stats"
}

func (XPEvent) TableName() string {
	return "xp_events"
}

func (UserBadge) TableName() string {
	return "user_badges"
}

// LeaderboardEntry is one row of a ranked projection.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    uint   `json:"user_id"`
	UserFname string `json:"user_fname"`
	UserLname string `json:"user_lname"`
	Score     int64  `json:"score"`
}
