package services

import (
	"fmt"
	"log"
	"time"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// Create writes one in-app notification. Redelivered outbox events call this
// again, so an identical unread row for the same user and species is treated
// as already delivered.
func (s *NotificationService) Create(userID uint, title, message, ntype string, speciesID *uint) error {
	query := s.DB.Model(&models.Notification{}).
		Where("user_id = ? AND title = ? AND message = ?", userID, title, message)
	if speciesID != nil {
		query = query.Where("related_species_id = ?", *speciesID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	notification := models.Notification{
		UserID:           userID,
		Title:            title,
		Message:          message,
		Type:             ntype,
		RelatedSpeciesID: speciesID,
		CreateAt:         time.Now(),
	}
	return s.DB.Create(&notification).Error
}

// SendEmail dispatches asynchronously; a mail failure is an operator concern,
// never the caller's.
func (s *NotificationService) SendEmail(to []string, subject, html string) {
	if len(to) == 0 {
		return
	}
	go func() {
		if err := config.SendMail(to, subject, html); err != nil {
			log.Printf("email delivery failed (subject=%q): %v", subject, err)
		}
	}()
}

// RemindStaleReviews notifies every reviewer about submissions that have been
// sitting in review longer than olderThan. Run from the scheduler.
func (s *NotificationService) RemindStaleReviews(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	var stale []models.Species
	if err := s.DB.Where("status = ? AND submitted_at IS NOT NULL AND submitted_at < ?",
		models.SpeciesStatusInReview, cutoff).
		Order("submitted_at ASC").
		Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var reviewers []models.User
	if err := s.DB.Where("role_id IN ? AND delete_at IS NULL",
		[]int{models.RoleReviewer, models.RoleAdmin}).
		Find(&reviewers).Error; err != nil {
		return 0, err
	}

	reminded := 0
	for _, sp := range stale {
		title := "Review reminder: " + sp.ScientificName
		message := fmt.Sprintf("'%s' has been waiting for review since %s.",
			sp.ScientificName, sp.SubmittedAt.Format("2006-01-02"))
		speciesID := sp.SpeciesID
		for _, reviewer := range reviewers {
			if reviewer.UserID == sp.CreatedBy {
				continue
			}
			if err := s.Create(reviewer.UserID, title, message, "warning", &speciesID); err != nil {
				log.Printf("stale review reminder failed (species=%d reviewer=%d): %v",
					sp.SpeciesID, reviewer.UserID, err)
				continue
			}
			reminded++
		}
	}
	return reminded, nil
}
