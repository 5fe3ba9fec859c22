package services

import (
	"testing"

	"species-encyclopedia-api/models"
)

func TestActivityTrailOrdering(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewActivityService(db)

	sp := createDraft(t, db, owner, "Monstera deliciosa")
	submitDraft(t, db, owner, sp.SpeciesID)

	entries, total, err := svc.GetSpeciesActivity(sp.SpeciesID, 1, 20)
	if err != nil {
		t.Fatalf("trail failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected created+submitted, got %d entries", total)
	}
	// Newest first.
	if entries[0].Action != models.ActivitySubmitted || entries[1].Action != models.ActivityCreated {
		t.Fatalf("unexpected order: %s, %s", entries[0].Action, entries[1].Action)
	}
}

func TestGlobalActivityFilters(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleContributor)
	bob := createTestUser(t, db, "bob", models.RoleContributor)
	svc := NewActivityService(db)

	spA := createDraft(t, db, alice, "Monstera deliciosa")
	createDraft(t, db, bob, "Ficus lyrata")
	submitDraft(t, db, alice, spA.SpeciesID)

	all, total, err := svc.GetGlobalActivity(ActivityFilter{})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", total)
	}

	_, total, err = svc.GetGlobalActivity(ActivityFilter{UserID: &bob.UserID})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("user filter: want 1, got %d", total)
	}

	_, total, err = svc.GetGlobalActivity(ActivityFilter{Action: models.ActivitySubmitted})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("action filter: want 1, got %d", total)
	}

	_, total, err = svc.GetGlobalActivity(ActivityFilter{SpeciesID: &spA.SpeciesID})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("species filter: want 2, got %d", total)
	}
}

func TestActivityPagination(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewActivityService(db)

	for i := 0; i < 5; i++ {
		createDraft(t, db, owner, "Monstera deliciosa")
	}

	page1, total, err := svc.GetGlobalActivity(ActivityFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 5 || len(page1) != 2 {
		t.Fatalf("page 1: total %d len %d", total, len(page1))
	}

	page3, _, err := svc.GetGlobalActivity(ActivityFilter{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("page 3: want 1 entry, got %d", len(page3))
	}
}
