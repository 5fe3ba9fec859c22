package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"species-encyclopedia-api/models"
	"species-encyclopedia-api/utils"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LifecycleService struct {
	DB           *gorm.DB
	Activity     *ActivityService
	Gamification *GamificationService
	Outbox       *OutboxService
}

func NewLifecycleService(db *gorm.DB) *LifecycleService {
	return &LifecycleService{
		DB:           db,
		Activity:     NewActivityService(db),
		Gamification: NewGamificationService(db),
		Outbox:       NewOutboxService(db),
	}
}

// MarshalAttributes encodes the free-form attribute bag for storage. The
// content is opaque to the engine; nil means "no attributes".
func MarshalAttributes(attributes map[string]interface{}) (json.RawMessage, error) {
	if attributes == nil {
		return nil, nil
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return nil, ValidationError("attributes must be a JSON object")
	}
	return raw, nil
}

// SpeciesInput carries the caller-editable content of a species record.
type SpeciesInput struct {
	ScientificName string          `json:"scientific_name"`
	CommonNames    []string        `json:"common_names"`
	Attributes     json.RawMessage `json:"attributes"`
}

func (in *SpeciesInput) validate() error {
	if strings.TrimSpace(in.ScientificName) == "" {
		return ValidationError("scientific name is required")
	}
	if !utils.ValidateScientificName(in.ScientificName) {
		return ValidationError("scientific name must be a binomial like 'Monstera deliciosa'")
	}
	names := 0
	for _, name := range in.CommonNames {
		if utils.SanitizeInput(name) != "" {
			names++
		}
	}
	if names == 0 {
		return ValidationError("at least one common name is required")
	}
	return nil
}

// uniqueSlug derives the slug from the scientific name and suffixes -2, -3,
// ... on collision. The slug is assigned once at creation and never changes
// afterwards, even if the name is edited.
func uniqueSlug(tx *gorm.DB, scientificName string) (string, error) {
	base := slug.Make(scientificName)
	if base == "" {
		base = "species"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := tx.Model(&models.Species{}).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// isDuplicateKey reports whether err is a unique-index violation. GORM only
// translates these when the dialector opts in, so the driver messages are
// matched as a fallback.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}

func replaceCommonNames(tx *gorm.DB, speciesID uint, names []string) error {
	if err := tx.Where("species_id = ?", speciesID).Delete(&models.SpeciesCommonName{}).Error; err != nil {
		return err
	}
	order := 0
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		entry := models.SpeciesCommonName{
			SpeciesID:    speciesID,
			Name:         trimmed,
			DisplayOrder: order,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		order++
	}
	return nil
}

// CreateSpecies creates a new draft owned by the caller.
func (s *LifecycleService) CreateSpecies(actor Actor, input SpeciesInput) (*models.Species, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	var created models.Species
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		slugValue, err := uniqueSlug(tx, input.ScientificName)
		if err != nil {
			return err
		}

		created = models.Species{
			Slug:           slugValue,
			ScientificName: strings.TrimSpace(input.ScientificName),
			Attributes:     input.Attributes,
			Status:         models.SpeciesStatusDraft,
			CreatedBy:      actor.UserID,
			ReviewCycle:    1,
			CreatedAt:      time.Now(),
		}
		if err := tx.Create(&created).Error; err != nil {
			// A concurrent create for the same name can win the slug between
			// the uniqueness probe and this insert.
			if isDuplicateKey(err) {
				return Conflict("a species with this name was just created, please retry")
			}
			return err
		}
		if err := replaceCommonNames(tx, created.SpeciesID, input.CommonNames); err != nil {
			return err
		}
		s.Activity.Log(tx, actor.UserID, models.ActivityCreated, &created.SpeciesID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSpecies(created.SpeciesID)
}

// UpdateSpecies lets the owner edit a draft.
func (s *LifecycleService) UpdateSpecies(actor Actor, speciesID uint, input SpeciesInput) (*models.Species, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionUpdate); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Species{}).
			Where("species_id = ?", sp.SpeciesID).
			Updates(map[string]interface{}{
				"scientific_name": strings.TrimSpace(input.ScientificName),
				"attributes":      []byte(input.Attributes),
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}
		if err := replaceCommonNames(tx, sp.SpeciesID, input.CommonNames); err != nil {
			return err
		}
		s.Activity.Log(tx, actor.UserID, models.ActivityUpdated, &sp.SpeciesID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSpecies(speciesID)
}

// ReviewerEdit lets a reviewer adjust a submission under review. A change
// reason is mandatory and lands in the activity trail.
func (s *LifecycleService) ReviewerEdit(actor Actor, speciesID uint, input SpeciesInput, changeReason string) (*models.Species, error) {
	if strings.TrimSpace(changeReason) == "" {
		return nil, ValidationError("a change reason is required for reviewer edits")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionReviewerEdit); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Species{}).
			Where("species_id = ?", sp.SpeciesID).
			Updates(map[string]interface{}{
				"scientific_name": strings.TrimSpace(input.ScientificName),
				"attributes":      []byte(input.Attributes),
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}
		if err := replaceCommonNames(tx, sp.SpeciesID, input.CommonNames); err != nil {
			return err
		}
		reason := strings.TrimSpace(changeReason)
		s.Activity.Log(tx, actor.UserID, models.ActivityUpdated, &sp.SpeciesID, &reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSpecies(speciesID)
}

// DeleteSpecies removes a draft and everything hanging off it.
func (s *LifecycleService) DeleteSpecies(actor Actor, speciesID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionDelete); err != nil {
			return err
		}

		if err := tx.Where("species_id = ?", sp.SpeciesID).Delete(&models.SpeciesPhoto{}).Error; err != nil {
			return err
		}
		if err := tx.Where("species_id = ?", sp.SpeciesID).Delete(&models.SpeciesReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("species_id = ?", sp.SpeciesID).Delete(&models.SpeciesCommonName{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Species{}, "species_id = ?", sp.SpeciesID).Error; err != nil {
			return err
		}
		details := "deleted draft '" + sp.ScientificName + "'"
		s.Activity.Log(tx, actor.UserID, models.ActivitySpeciesDeleted, nil, &details)
		return nil
	})
}

// SubmitForReview moves an owned draft into the review queue and starts (or
// continues) its review cycle.
func (s *LifecycleService) SubmitForReview(actor Actor, speciesID uint) (*models.Species, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionSubmit); err != nil {
			return err
		}

		now := time.Now()
		result := tx.Model(&models.Species{}).
			Where("species_id = ? AND status = ?", sp.SpeciesID, models.SpeciesStatusDraft).
			Updates(map[string]interface{}{
				"status":       models.SpeciesStatusInReview,
				"submitted_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return Conflict("species status changed concurrently")
		}
		s.Activity.Log(tx, actor.UserID, models.ActivitySubmitted, &sp.SpeciesID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.Gamification.AwardXP(actor.UserID, models.XPEventSubmitted, &speciesID); err != nil && !IsConflict(err) {
		log.Printf("submit xp award failed (user=%d species=%d): %v", actor.UserID, speciesID, err)
	}
	if _, err := s.Gamification.CheckBadges(actor.UserID); err != nil {
		log.Printf("badge check failed (user=%d): %v", actor.UserID, err)
	}
	return s.GetSpecies(speciesID)
}

// ResubmitRejected returns a rejected submission to review. The cycle bump
// resets consensus: prior decisions stay in storage but no longer count.
func (s *LifecycleService) ResubmitRejected(actor Actor, speciesID uint) (*models.Species, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionResubmit); err != nil {
			return err
		}

		now := time.Now()
		result := tx.Model(&models.Species{}).
			Where("species_id = ? AND status = ?", sp.SpeciesID, models.SpeciesStatusRejected).
			Updates(map[string]interface{}{
				"status":                models.SpeciesStatusInReview,
				"review_cycle":          gorm.Expr("review_cycle + 1"),
				"submitted_at":          now,
				"revision_requested_by": nil,
				"revision_requested_at": nil,
				"updated_at":            now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return Conflict("species status changed concurrently")
		}
		s.Activity.Log(tx, actor.UserID, models.ActivityResubmitted, &sp.SpeciesID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSpecies(speciesID)
}

// RequestRevision sends a published record back into review. Any
// authenticated user may raise one; the requester is stamped on the record so
// the queue can distinguish revisions from fresh submissions.
func (s *LifecycleService) RequestRevision(actor Actor, speciesID uint, reason string) (*models.Species, error) {
	trimmedReason := strings.TrimSpace(reason)
	if trimmedReason == "" {
		return nil, ValidationError("a reason is required to request a revision")
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}
		if err := CanPerform(actor, sp, ActionRequestRevision); err != nil {
			return err
		}

		now := time.Now()
		result := tx.Model(&models.Species{}).
			Where("species_id = ? AND status = ?", sp.SpeciesID, models.SpeciesStatusPublished).
			Updates(map[string]interface{}{
				"status":                models.SpeciesStatusInReview,
				"review_cycle":          gorm.Expr("review_cycle + 1"),
				"revision_requested_by": actor.UserID,
				"revision_requested_at": now,
				"updated_at":            now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return Conflict("species status changed concurrently")
		}
		s.Activity.Log(tx, actor.UserID, models.ActivityRevisionRequested, &sp.SpeciesID, &trimmedReason)
		return s.Outbox.Emit(tx, models.OutboxRevisionRequested, sp.SpeciesID, actor.UserID, &trimmedReason)
	})
	if err != nil {
		return nil, err
	}
	return s.GetSpecies(speciesID)
}

// lockSpecies loads the species row under FOR UPDATE so that concurrent
// transitions on the same record serialize on it. Under REPEATABLE READ two
// racing transactions would otherwise each count only their own review and
// neither would see consensus reached. SQLite has no row locks; its
// single-writer model gives the same serialization, so the clause is skipped
// there.
func lockSpecies(tx *gorm.DB, speciesID uint) (*models.Species, error) {
	if tx.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var sp models.Species
	if err := tx.First(&sp, "species_id = ?", speciesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("species not found")
		}
		return nil, err
	}
	return &sp, nil
}

// GetSpecies loads one record with its relations.
func (s *LifecycleService) GetSpecies(speciesID uint) (*models.Species, error) {
	var sp models.Species
	err := s.DB.Preload("Creator").
		Preload("CommonNames", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Photos").
		First(&sp, "species_id = ?", speciesID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("species not found")
		}
		return nil, err
	}
	return &sp, nil
}

// GetSpeciesBySlug loads a published record by its slug.
func (s *LifecycleService) GetSpeciesBySlug(slugValue string) (*models.Species, error) {
	var sp models.Species
	err := s.DB.Preload("Creator").
		Preload("CommonNames", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Photos").
		Where("slug = ? AND status = ?", slugValue, models.SpeciesStatusPublished).
		First(&sp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("species not found")
		}
		return nil, err
	}
	return &sp, nil
}

// SpeciesFilter narrows ListSpecies.
type SpeciesFilter struct {
	Status string
	UserID *uint
	Page   int
	Limit  int
}

// ListSpecies returns a paginated listing. Reviewers see everything; other
// callers only ever see their own records, whatever filter they pass.
func (s *LifecycleService) ListSpecies(actor Actor, filter SpeciesFilter) ([]models.Species, int64, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	query := s.DB.Model(&models.Species{})
	if !actor.IsReviewer() {
		query = query.Where("created_by = ?", actor.UserID)
	} else if filter.UserID != nil {
		query = query.Where("created_by = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var species []models.Species
	err := query.Preload("Creator").Preload("CommonNames").
		Order("created_at DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&species).Error
	return species, total, err
}
