package services

import (
	"errors"
	"log"
	"time"

	"species-encyclopedia-api/models"

	"gorm.io/gorm"
)

type ReviewService struct {
	DB           *gorm.DB
	Activity     *ActivityService
	Gamification *GamificationService
	Outbox       *OutboxService
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{
		DB:           db,
		Activity:     NewActivityService(db),
		Gamification: NewGamificationService(db),
		Outbox:       NewOutboxService(db),
	}
}

// SubmitReview records one reviewer decision and applies the consensus rule.
//
// The review insert and any resulting status transition run in a single
// transaction opened with a FOR UPDATE read of the species row, so racing
// reviewers serialize and the later one counts the earlier one's committed
// approval. The conditional status update (WHERE status = 'in_review' AND
// review_cycle = ?) backstops the transition, and the unique (species,
// reviewer, cycle) index means a duplicate decision fails instead of
// silently overwriting.
//
// A single rejection is terminal for the cycle. The RequiredApprovals'th
// approval publishes in the same atomic step. XP awards and badge checks run
// after commit: they are idempotent, so a crash or failure there leaves the
// published fact intact and the award safely retryable.
func (s *ReviewService) SubmitReview(actor Actor, speciesID uint, decision string, comments string) (*models.ReviewStatus, error) {
	if decision != models.ReviewDecisionApproved && decision != models.ReviewDecisionRejected {
		return nil, ValidationError("decision must be 'approved' or 'rejected'")
	}

	var (
		published      bool
		rejected       bool
		creatorID      uint
		cycleReviewers []uint
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// The locking read must come first: it serializes racing reviewers
		// on the species row, so the approval count below always sees every
		// committed decision for the cycle.
		sp, err := lockSpecies(tx, speciesID)
		if err != nil {
			return err
		}

		if err := CanPerform(actor, sp, ActionReview); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.SpeciesReview{}).
			Where("species_id = ? AND reviewer_id = ? AND review_cycle = ?",
				sp.SpeciesID, actor.UserID, sp.ReviewCycle).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return Conflict("you have already reviewed this submission in the current cycle")
		}

		now := time.Now()
		review := models.SpeciesReview{
			SpeciesID:   sp.SpeciesID,
			ReviewerID:  actor.UserID,
			ReviewCycle: sp.ReviewCycle,
			Decision:    decision,
			ReviewedAt:  now,
		}
		if comments != "" {
			review.Comments = &comments
		}
		if err := tx.Create(&review).Error; err != nil {
			if isDuplicateKey(err) {
				// Unique index caught a concurrent duplicate decision.
				return Conflict("you have already reviewed this submission in the current cycle")
			}
			return err
		}

		creatorID = sp.CreatedBy

		if decision == models.ReviewDecisionRejected {
			result := tx.Model(&models.Species{}).
				Where("species_id = ? AND status = ? AND review_cycle = ?",
					sp.SpeciesID, models.SpeciesStatusInReview, sp.ReviewCycle).
				Updates(map[string]interface{}{
					"status":     models.SpeciesStatusRejected,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return Conflict("submission was decided concurrently")
			}
			rejected = true
			s.Activity.Log(tx, actor.UserID, models.ActivityReviewRejected, &sp.SpeciesID, review.Comments)
			s.Activity.Log(tx, actor.UserID, models.ActivitySpeciesRejected, &sp.SpeciesID, nil)
			return s.Outbox.Emit(tx, models.OutboxSpeciesRejected, sp.SpeciesID, actor.UserID, review.Comments)
		}

		s.Activity.Log(tx, actor.UserID, models.ActivityReviewApproved, &sp.SpeciesID, review.Comments)

		var approvals int64
		if err := tx.Model(&models.SpeciesReview{}).
			Where("species_id = ? AND review_cycle = ? AND decision = ?",
				sp.SpeciesID, sp.ReviewCycle, models.ReviewDecisionApproved).
			Count(&approvals).Error; err != nil {
			return err
		}
		if approvals < models.RequiredApprovals {
			return nil
		}

		result := tx.Model(&models.Species{}).
			Where("species_id = ? AND status = ? AND review_cycle = ?",
				sp.SpeciesID, models.SpeciesStatusInReview, sp.ReviewCycle).
			Updates(map[string]interface{}{
				"status":                models.SpeciesStatusPublished,
				"published_at":          now,
				"revision_requested_by": nil,
				"revision_requested_at": nil,
				"updated_at":            now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return Conflict("submission was decided concurrently")
		}
		published = true

		var approving []models.SpeciesReview
		if err := tx.Where("species_id = ? AND review_cycle = ? AND decision = ?",
			sp.SpeciesID, sp.ReviewCycle, models.ReviewDecisionApproved).
			Find(&approving).Error; err != nil {
			return err
		}
		for _, r := range approving {
			cycleReviewers = append(cycleReviewers, r.ReviewerID)
		}

		s.Activity.Log(tx, actor.UserID, models.ActivitySpeciesPublished, &sp.SpeciesID, nil)
		return s.Outbox.Emit(tx, models.OutboxSpeciesPublished, sp.SpeciesID, actor.UserID, nil)
	})
	if err != nil {
		return nil, err
	}

	// Post-commit side effects. Failures are logged and the outbox retries
	// notifications; the committed transition is never rolled back.
	if err := s.Gamification.IncrementStat(actor.UserID, StatReviewsGiven); err != nil {
		log.Printf("reviews_given increment failed (user=%d): %v", actor.UserID, err)
	}
	if published {
		if err := s.Gamification.AwardXP(creatorID, models.XPEventSpeciesPublished, &speciesID); err != nil && !IsConflict(err) {
			log.Printf("publish xp award failed (user=%d species=%d): %v", creatorID, speciesID, err)
		}
		if err := s.Gamification.IncrementStat(creatorID, StatSpeciesPublished); err != nil {
			log.Printf("species_published increment failed (user=%d): %v", creatorID, err)
		}
		for _, reviewerID := range cycleReviewers {
			if err := s.Gamification.AwardXP(reviewerID, models.XPEventReviewCompleted, &speciesID); err != nil && !IsConflict(err) {
				log.Printf("review xp award failed (user=%d species=%d): %v", reviewerID, speciesID, err)
			}
			if _, err := s.Gamification.CheckBadges(reviewerID); err != nil {
				log.Printf("badge check failed (user=%d): %v", reviewerID, err)
			}
		}
		if _, err := s.Gamification.CheckBadges(creatorID); err != nil {
			log.Printf("badge check failed (user=%d): %v", creatorID, err)
		}
	}
	if rejected || !published {
		if _, err := s.Gamification.CheckBadges(actor.UserID); err != nil {
			log.Printf("badge check failed (user=%d): %v", actor.UserID, err)
		}
	}

	return s.GetReviewStatus(speciesID)
}

// GetReviewStatus returns the consensus snapshot for the current review
// cycle. Reviews from earlier cycles exist in storage but never count here.
func (s *ReviewService) GetReviewStatus(speciesID uint) (*models.ReviewStatus, error) {
	var sp models.Species
	if err := s.DB.First(&sp, "species_id = ?", speciesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("species not found")
		}
		return nil, err
	}

	var reviews []models.SpeciesReview
	if err := s.DB.Preload("Reviewer").
		Where("species_id = ? AND review_cycle = ?", sp.SpeciesID, sp.ReviewCycle).
		Order("reviewed_at ASC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}

	status := &models.ReviewStatus{
		SpeciesID:   sp.SpeciesID,
		ReviewCycle: sp.ReviewCycle,
		Status:      sp.Status,
		Required:    models.RequiredApprovals,
		Reviews:     reviews,
	}
	for _, r := range reviews {
		switch r.Decision {
		case models.ReviewDecisionApproved:
			status.Approvals++
		case models.ReviewDecisionRejected:
			status.Rejections++
		}
	}
	return status, nil
}

// HasUserReviewed reports whether the user already decided in the current
// cycle.
func (s *ReviewService) HasUserReviewed(speciesID, userID uint) (bool, error) {
	var sp models.Species
	if err := s.DB.First(&sp, "species_id = ?", speciesID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, NotFound("species not found")
		}
		return false, err
	}

	var count int64
	err := s.DB.Model(&models.SpeciesReview{}).
		Where("species_id = ? AND reviewer_id = ? AND review_cycle = ?",
			sp.SpeciesID, userID, sp.ReviewCycle).
		Count(&count).Error
	return count > 0, err
}

// Queue submission types.
const (
	QueueTypeNew      = "new"
	QueueTypeRevision = "revision"
)

// GetReviewQueue lists species awaiting the reviewer's decision, excluding
// their own submissions and anything they already reviewed this cycle.
// Entries are partitioned into fresh submissions and revision re-entries.
func (s *ReviewService) GetReviewQueue(actor Actor, submissionType string, page, limit int) ([]models.Species, int64, error) {
	if !actor.IsReviewer() {
		return nil, 0, Forbidden("reviewer role required")
	}
	page, limit = normalizePage(page, limit)

	query := s.DB.Model(&models.Species{}).
		Where("status = ?", models.SpeciesStatusInReview).
		Where("created_by <> ?", actor.UserID).
		Where(`NOT EXISTS (
			SELECT 1 FROM species_reviews r
			WHERE r.species_id = species.species_id
			  AND r.reviewer_id = ?
			  AND r.review_cycle = species.review_cycle
		)`, actor.UserID)

	switch submissionType {
	case QueueTypeNew:
		query = query.Where("revision_requested_by IS NULL")
	case QueueTypeRevision:
		query = query.Where("revision_requested_by IS NOT NULL")
	case "":
	default:
		return nil, 0, ValidationError("submission type must be 'new' or 'revision'")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var species []models.Species
	err := query.Preload("Creator").Preload("CommonNames").
		Order("submitted_at ASC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&species).Error
	return species, total, err
}
