package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"species-encyclopedia-api/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

type OutboxService struct {
	DB            *gorm.DB
	Notifications *NotificationService
}

func NewOutboxService(db *gorm.DB) *OutboxService {
	return &OutboxService{DB: db, Notifications: NewNotificationService(db)}
}

// Emit appends an outbox row using the caller's transaction, so the event
// exists exactly when the transition it describes committed.
func (s *OutboxService) Emit(tx *gorm.DB, eventType string, speciesID, actorID uint, payload *string) error {
	event := models.OutboxEvent{
		EventType: eventType,
		SpeciesID: speciesID,
		ActorID:   actorID,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	return tx.Create(&event).Error
}

// DispatchPending delivers undelivered events oldest-first. A row is marked
// delivered only after its side effects succeed; failures bump the attempt
// counter and are retried on the next run. Delivery is idempotent, so a crash
// between delivering and marking is safe.
func (s *OutboxService) DispatchPending(limit int) (int, error) {
	if limit < 1 {
		limit = 50
	}

	var events []models.OutboxEvent
	if err := s.DB.Where("delivered_at IS NULL").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return 0, err
	}

	delivered := 0
	for i := range events {
		event := &events[i]
		if err := s.deliver(event); err != nil {
			msg := err.Error()
			s.DB.Model(event).Updates(map[string]interface{}{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": msg,
			})
			log.Printf("outbox delivery failed (id=%d type=%s): %v", event.OutboxID, event.EventType, err)
			continue
		}
		now := time.Now()
		if err := s.DB.Model(event).Updates(map[string]interface{}{
			"delivered_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error; err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}

func (s *OutboxService) deliver(event *models.OutboxEvent) error {
	var species models.Species
	if err := s.DB.Preload("Creator").First(&species, "species_id = ?", event.SpeciesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The species was deleted before delivery; nothing left to notify.
			return nil
		}
		return err
	}

	speciesID := species.SpeciesID
	detail := ""
	if event.Payload != nil {
		detail = *event.Payload
	}

	switch event.EventType {
	case models.OutboxSpeciesPublished:
		title := "Species published: " + species.ScientificName
		message := fmt.Sprintf("'%s' reached the required approvals and is now published.", species.ScientificName)
		if err := s.Notifications.Create(species.CreatedBy, title, message, "success", &speciesID); err != nil {
			return err
		}
		if species.Creator != nil && species.Creator.Email != "" {
			s.Notifications.SendEmail([]string{species.Creator.Email}, title,
				fmt.Sprintf("<p>Congratulations! %s</p>", message))
		}
		return nil

	case models.OutboxSpeciesRejected:
		title := "Species rejected: " + species.ScientificName
		message := fmt.Sprintf("'%s' was rejected during review.", species.ScientificName)
		if detail != "" {
			message += " Reviewer comments: " + detail
		}
		if err := s.Notifications.Create(species.CreatedBy, title, message, "error", &speciesID); err != nil {
			return err
		}
		if species.Creator != nil && species.Creator.Email != "" {
			s.Notifications.SendEmail([]string{species.Creator.Email}, title,
				fmt.Sprintf("<p>%s</p><p>You can revise the record and resubmit it.</p>", message))
		}
		return nil

	case models.OutboxRevisionRequested:
		title := "Revision requested: " + species.ScientificName
		message := fmt.Sprintf("'%s' was sent back into review.", species.ScientificName)
		if detail != "" {
			message += " Reason: " + detail
		}
		return s.Notifications.Create(species.CreatedBy, title, message, "warning", &speciesID)
	}

	// Unknown events are marked delivered rather than retried forever.
	log.Printf("outbox: skipping unknown event type %q (id=%d)", event.EventType, event.OutboxID)
	return nil
}

// StartScheduler runs the dispatcher every minute and the stale-review
// reminder daily.
func (s *OutboxService) StartScheduler() (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			if _, err := s.DispatchPending(50); err != nil {
				log.Printf("outbox dispatch run failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if _, err := s.Notifications.RemindStaleReviews(7 * 24 * time.Hour); err != nil {
				log.Printf("stale review reminder run failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	scheduler.Start()
	return scheduler, nil
}
