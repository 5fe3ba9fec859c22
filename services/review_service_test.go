package services

import (
	"sync"
	"testing"

	"species-encyclopedia-api/models"
)

func TestTwoApprovalsPublish(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	r1 := createTestUser(t, db, "rita", models.RoleReviewer)
	r2 := createTestUser(t, db, "remy", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	status, err := review.SubmitReview(actorFor(r1), sp.SpeciesID, models.ReviewDecisionApproved, "looks good")
	if err != nil {
		t.Fatalf("first approval failed: %v", err)
	}
	if status.Status != models.SpeciesStatusInReview {
		t.Fatalf("one approval must not publish, got %s", status.Status)
	}
	if status.Approvals != 1 || status.Required != models.RequiredApprovals {
		t.Fatalf("unexpected snapshot: %+v", status)
	}

	status, err = review.SubmitReview(actorFor(r2), sp.SpeciesID, models.ReviewDecisionApproved, "")
	if err != nil {
		t.Fatalf("second approval failed: %v", err)
	}
	if status.Status != models.SpeciesStatusPublished {
		t.Fatalf("expected published after %d approvals, got %s", models.RequiredApprovals, status.Status)
	}

	var published models.Species
	if err := db.First(&published, "species_id = ?", sp.SpeciesID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if published.PublishedAt == nil {
		t.Fatalf("published_at not set")
	}

	// Creator got the publish XP, each approving reviewer the review XP.
	var creatorStats models.UserStats
	if err := db.First(&creatorStats, "user_id = ?", owner.UserID).Error; err != nil {
		t.Fatalf("creator stats missing: %v", err)
	}
	wantCreator := XPPoints[models.XPEventSubmitted] + XPPoints[models.XPEventSpeciesPublished]
	if creatorStats.XP != wantCreator {
		t.Fatalf("creator xp: want %d, got %d", wantCreator, creatorStats.XP)
	}
	if creatorStats.SpeciesPublished != 1 {
		t.Fatalf("species_published counter: want 1, got %d", creatorStats.SpeciesPublished)
	}

	for _, r := range []models.User{r1, r2} {
		var st models.UserStats
		if err := db.First(&st, "user_id = ?", r.UserID).Error; err != nil {
			t.Fatalf("reviewer %d stats missing: %v", r.UserID, err)
		}
		if st.XP != XPPoints[models.XPEventReviewCompleted] {
			t.Fatalf("reviewer %d xp: want %d, got %d", r.UserID, XPPoints[models.XPEventReviewCompleted], st.XP)
		}
		if st.ReviewsGiven != 1 {
			t.Fatalf("reviewer %d reviews_given: want 1, got %d", r.UserID, st.ReviewsGiven)
		}
	}

	var outbox int64
	db.Model(&models.OutboxEvent{}).
		Where("species_id = ? AND event_type = ?", sp.SpeciesID, models.OutboxSpeciesPublished).
		Count(&outbox)
	if outbox != 1 {
		t.Fatalf("expected one species_published outbox event, got %d", outbox)
	}
}

func TestSingleRejectionIsTerminal(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	r1 := createTestUser(t, db, "rita", models.RoleReviewer)
	r2 := createTestUser(t, db, "remy", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(r1), sp.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	status, err := review.SubmitReview(actorFor(r2), sp.SpeciesID, models.ReviewDecisionRejected, "wrong genus")
	if err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if status.Status != models.SpeciesStatusRejected {
		t.Fatalf("one rejection must end the cycle, got %s", status.Status)
	}

	// No further decisions are accepted once the cycle is decided.
	r3 := createTestUser(t, db, "rob", models.RoleReviewer)
	if _, err := review.SubmitReview(actorFor(r3), sp.SpeciesID, models.ReviewDecisionApproved, ""); !IsInvalidState(err) {
		t.Fatalf("expected invalid state on decided submission, got %v", err)
	}

	// The creator got no publish XP.
	var st models.UserStats
	if err := db.First(&st, "user_id = ?", owner.UserID).Error; err != nil {
		t.Fatalf("stats missing: %v", err)
	}
	if st.XP != XPPoints[models.XPEventSubmitted] {
		t.Fatalf("rejected submission must not award publish xp, got %d", st.XP)
	}
}

func TestDuplicateReviewConflicts(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	reviewer := createTestUser(t, db, "rita", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(reviewer), sp.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("first review failed: %v", err)
	}
	if _, err := review.SubmitReview(actorFor(reviewer), sp.SpeciesID, models.ReviewDecisionRejected, ""); !IsConflict(err) {
		t.Fatalf("expected conflict on duplicate review, got %v", err)
	}
}

func TestSelfReviewForbidden(t *testing.T) {
	db := newTestDB(t)
	reviewer := createTestUser(t, db, "rita", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, reviewer, "Monstera deliciosa")
	submitDraft(t, db, reviewer, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(reviewer), sp.SpeciesID, models.ReviewDecisionApproved, ""); !IsForbidden(err) {
		t.Fatalf("expected forbidden for self-review, got %v", err)
	}
}

func TestNonReviewerForbidden(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	other := createTestUser(t, db, "bob", models.RoleContributor)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(other), sp.SpeciesID, models.ReviewDecisionApproved, ""); !IsForbidden(err) {
		t.Fatalf("expected forbidden for contributor review, got %v", err)
	}
}

func TestInvalidDecisionRejected(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	reviewer := createTestUser(t, db, "rita", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(reviewer), sp.SpeciesID, "maybe", ""); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown decision, got %v", err)
	}
}

func TestReviewerCanDecideAgainAfterResubmit(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	r1 := createTestUser(t, db, "rita", models.RoleReviewer)
	r2 := createTestUser(t, db, "remy", models.RoleReviewer)
	lifecycle := NewLifecycleService(db)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	if _, err := review.SubmitReview(actorFor(r1), sp.SpeciesID, models.ReviewDecisionRejected, "incomplete"); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if _, err := lifecycle.ResubmitRejected(actorFor(owner), sp.SpeciesID); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}

	// The same reviewer decides again in the new cycle, and publication still
	// needs the full approval count.
	if _, err := review.SubmitReview(actorFor(r1), sp.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("cycle-2 review by former rejector failed: %v", err)
	}
	status, err := review.SubmitReview(actorFor(r2), sp.SpeciesID, models.ReviewDecisionApproved, "")
	if err != nil {
		t.Fatalf("cycle-2 second approval failed: %v", err)
	}
	if status.Status != models.SpeciesStatusPublished {
		t.Fatalf("expected published in cycle 2, got %s", status.Status)
	}
	if status.ReviewCycle != 2 {
		t.Fatalf("expected cycle 2 snapshot, got %d", status.ReviewCycle)
	}
}

func TestReviewQueue(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleContributor)
	rita := createTestUser(t, db, "rita", models.RoleReviewer)
	remy := createTestUser(t, db, "remy", models.RoleReviewer)
	review := NewReviewService(db)

	// Two pending submissions, one of them rita's own.
	fromAlice := createDraft(t, db, alice, "Monstera deliciosa")
	submitDraft(t, db, alice, fromAlice.SpeciesID)
	fromRita := createDraft(t, db, rita, "Ficus lyrata")
	submitDraft(t, db, rita, fromRita.SpeciesID)

	if _, _, err := review.GetReviewQueue(actorFor(alice), "", 1, 20); !IsForbidden(err) {
		t.Fatalf("expected forbidden queue access for contributor")
	}

	queue, total, err := review.GetReviewQueue(actorFor(rita), "", 1, 20)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if total != 1 || queue[0].SpeciesID != fromAlice.SpeciesID {
		t.Fatalf("queue must exclude own submissions, got %d entries", total)
	}

	// After deciding, the entry leaves rita's queue but stays in remy's.
	if _, err := review.SubmitReview(actorFor(rita), fromAlice.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("review failed: %v", err)
	}
	_, total, err = review.GetReviewQueue(actorFor(rita), "", 1, 20)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("reviewed entry must leave the queue, got %d", total)
	}
	_, total, err = review.GetReviewQueue(actorFor(remy), "", 1, 20)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("remy should see both pending submissions, got %d", total)
	}

	if _, _, err := review.GetReviewQueue(actorFor(remy), "bogus", 1, 20); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown queue type, got %v", err)
	}
}

func TestReviewQueuePartitionsRevisions(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleContributor)
	r1 := createTestUser(t, db, "rita", models.RoleReviewer)
	r2 := createTestUser(t, db, "remy", models.RoleReviewer)
	r3 := createTestUser(t, db, "rob", models.RoleReviewer)
	lifecycle := NewLifecycleService(db)
	review := NewReviewService(db)

	// One fresh submission and one published record pushed back for revision.
	fresh := createDraft(t, db, alice, "Monstera deliciosa")
	submitDraft(t, db, alice, fresh.SpeciesID)

	revised := createDraft(t, db, alice, "Ficus lyrata")
	submitDraft(t, db, alice, revised.SpeciesID)
	if _, err := review.SubmitReview(actorFor(r1), revised.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if _, err := review.SubmitReview(actorFor(r2), revised.SpeciesID, models.ReviewDecisionApproved, ""); err != nil {
		t.Fatalf("approval failed: %v", err)
	}
	if _, err := lifecycle.RequestRevision(actorFor(alice), revised.SpeciesID, "taxonomy update"); err != nil {
		t.Fatalf("revision request failed: %v", err)
	}

	newQueue, total, err := review.GetReviewQueue(actorFor(r3), QueueTypeNew, 1, 20)
	if err != nil {
		t.Fatalf("new queue failed: %v", err)
	}
	if total != 1 || newQueue[0].SpeciesID != fresh.SpeciesID {
		t.Fatalf("new queue should hold only the fresh submission")
	}

	revQueue, total, err := review.GetReviewQueue(actorFor(r3), QueueTypeRevision, 1, 20)
	if err != nil {
		t.Fatalf("revision queue failed: %v", err)
	}
	if total != 1 || revQueue[0].SpeciesID != revised.SpeciesID {
		t.Fatalf("revision queue should hold only the revision re-entry")
	}
}

// Two reviewers deciding at the same time must still converge on exactly one
// publication: the species row lock serializes them, so whichever transaction
// lands second counts the earlier committed approval.
func TestConcurrentApprovalsPublishOnce(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	r1 := createTestUser(t, db, "rita", models.RoleReviewer)
	r2 := createTestUser(t, db, "remy", models.RoleReviewer)
	review := NewReviewService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, r := range []models.User{r1, r2} {
		wg.Add(1)
		go func(reviewer models.User) {
			defer wg.Done()
			_, err := review.SubmitReview(actorFor(reviewer), sp.SpeciesID, models.ReviewDecisionApproved, "")
			errs <- err
		}(r)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent approval failed: %v", err)
		}
	}

	var published models.Species
	if err := db.First(&published, "species_id = ?", sp.SpeciesID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if published.Status != models.SpeciesStatusPublished {
		t.Fatalf("expected published after both approvals, got %s", published.Status)
	}
	if published.PublishedAt == nil {
		t.Fatalf("published_at not set")
	}

	var approvals int64
	db.Model(&models.SpeciesReview{}).
		Where("species_id = ? AND decision = ?", sp.SpeciesID, models.ReviewDecisionApproved).
		Count(&approvals)
	if approvals != 2 {
		t.Fatalf("expected both approvals recorded, got %d", approvals)
	}

	var outbox int64
	db.Model(&models.OutboxEvent{}).
		Where("species_id = ? AND event_type = ?", sp.SpeciesID, models.OutboxSpeciesPublished).
		Count(&outbox)
	if outbox != 1 {
		t.Fatalf("expected exactly one species_published outbox event, got %d", outbox)
	}
}
