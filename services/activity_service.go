package services

import (
	"log"
	"time"

	"species-encyclopedia-api/models"

	"gorm.io/gorm"
)

type ActivityService struct {
	DB *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db}
}

// Log appends one activity entry using the caller's transaction handle so the
// entry commits atomically with the transition that produced it. A failed
// insert is surfaced to operators but never fails the caller: the business
// transition must not roll back because audit logging hiccuped.
func (s *ActivityService) Log(tx *gorm.DB, userID uint, action string, speciesID *uint, details *string) {
	if tx == nil {
		tx = s.DB
	}
	entry := models.ActivityLog{
		UserID:    userID,
		Action:    action,
		SpeciesID: speciesID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		log.Printf("activity log append failed (action=%s user=%d): %v", action, userID, err)
	}
}

// ActivityFilter narrows the global feed.
type ActivityFilter struct {
	UserID    *uint
	Action    string
	SpeciesID *uint
	Page      int
	Limit     int
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// GetSpeciesActivity returns the audit trail of one species, newest first.
func (s *ActivityService) GetSpeciesActivity(speciesID uint, page, limit int) ([]models.ActivityLog, int64, error) {
	page, limit = normalizePage(page, limit)

	var total int64
	if err := s.DB.Model(&models.ActivityLog{}).Where("species_id = ?", speciesID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := s.DB.Preload("User").
		Where("species_id = ?", speciesID).
		Order("created_at DESC, activity_id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&entries).Error
	return entries, total, err
}

// GetGlobalActivity returns the filtered global feed, newest first.
func (s *ActivityService) GetGlobalActivity(filter ActivityFilter) ([]models.ActivityLog, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	query := s.DB.Model(&models.ActivityLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.SpeciesID != nil {
		query = query.Where("species_id = ?", *filter.SpeciesID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.ActivityLog
	err := query.Preload("User").
		Order("created_at DESC, activity_id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&entries).Error
	return entries, total, err
}
