package models

import "time"

// Outbox event types emitted by lifecycle transitions.
const (
	OutboxSpeciesPublished  = "species_published"
	OutboxSpeciesRejected   = "species_rejected"
	OutboxRevisionRequested = "revision_requested"
)

// OutboxEvent is written in the same transaction as the lifecycle transition
// that produced it. A scheduled dispatcher delivers the downstream side
// effects (notifications, email) and retries failures; delivery must be
// idempotent because a crash can leave a delivered-but-unmarked row.
type OutboxEvent struct {
	OutboxID    uint       `gorm:"primaryKey;column:outbox_id" json:"outbox_id"`
	EventType   string     `gorm:"column:event_type;index" json:"event_type"`
	SpeciesID   uint       `gorm:"column:species_id" json:"species_id"`
	ActorID     uint       `gorm:"column:actor_id" json:"actor_id"`
	Payload     *string    `gorm:"column:payload" json:"payload,omitempty"`
	Attempts    int        `gorm:"column:attempts;default:0" json:"attempts"`
	LastError   *string    `gorm:"column:last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at;index" json:"delivered_at,omitempty"`
}

// TableName specifies the table for OutboxEvent.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
