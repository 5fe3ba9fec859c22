package services

import (
	"testing"
	"time"

	"species-encyclopedia-api/models"
)

func TestLevelCurve(t *testing.T) {
	cases := []struct {
		xp    int64
		level int
	}{
		{0, 1},
		{49, 1},
		{50, 2},
		{149, 2},
		{150, 3},
		{300, 4},
		{500, 5},
		{2250, 10},
		{2749, 10},
		{2750, 11},
	}
	for _, tc := range cases {
		if got := LevelForXP(tc.xp); got != tc.level {
			t.Fatalf("LevelForXP(%d): want %d, got %d", tc.xp, tc.level, got)
		}
	}

	// The curve never goes down.
	prev := LevelForXP(0)
	for xp := int64(0); xp <= 5000; xp += 25 {
		level := LevelForXP(xp)
		if level < prev {
			t.Fatalf("level regressed at xp=%d: %d < %d", xp, level, prev)
		}
		prev = level
	}
}

func TestTitleForLevel(t *testing.T) {
	cases := map[int]string{
		1:  "Seedling",
		4:  "Sapling",
		5:  "Gardener",
		7:  "Botanist",
		10: "Master Botanist",
		15: "Living Encyclopedia",
		20: "Living Encyclopedia",
	}
	for level, want := range cases {
		if got := TitleForLevel(level); got != want {
			t.Fatalf("TitleForLevel(%d): want %q, got %q", level, want, got)
		}
	}
}

func TestAwardXPIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewGamificationService(db)

	speciesID := uint(42)
	if err := svc.AwardXP(user.UserID, models.XPEventSubmitted, &speciesID); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	// Replay of a delivered side effect is a silent no-op.
	if err := svc.AwardXP(user.UserID, models.XPEventSubmitted, &speciesID); err != nil {
		t.Fatalf("replayed award must be a no-op, got %v", err)
	}

	var st models.UserStats
	if err := db.First(&st, "user_id = ?", user.UserID).Error; err != nil {
		t.Fatalf("stats missing: %v", err)
	}
	if st.XP != XPPoints[models.XPEventSubmitted] {
		t.Fatalf("xp counted twice: %d", st.XP)
	}

	var ledger int64
	db.Model(&models.XPEvent{}).Where("user_id = ?", user.UserID).Count(&ledger)
	if ledger != 1 {
		t.Fatalf("expected one ledger row, got %d", ledger)
	}

	// A different species is a distinct award.
	other := uint(43)
	if err := svc.AwardXP(user.UserID, models.XPEventSubmitted, &other); err != nil {
		t.Fatalf("distinct award failed: %v", err)
	}
	db.First(&st, "user_id = ?", user.UserID)
	if st.XP != 2*XPPoints[models.XPEventSubmitted] {
		t.Fatalf("distinct award not counted, xp=%d", st.XP)
	}
}

func TestAwardXPUnknownEvent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewGamificationService(db)

	if err := svc.AwardXP(user.UserID, "tap_dancing", nil); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckBadgesIdempotent(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewGamificationService(db)

	// No stats row yet: nothing to award, no error.
	awarded, err := svc.CheckBadges(user.UserID)
	if err != nil || len(awarded) != 0 {
		t.Fatalf("expected empty check, got %v %v", awarded, err)
	}

	speciesID := uint(1)
	if err := svc.AwardXP(user.UserID, models.XPEventSubmitted, &speciesID); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if err := svc.IncrementStat(user.UserID, StatSpeciesPublished); err != nil {
		t.Fatalf("increment failed: %v", err)
	}

	awarded, err = svc.CheckBadges(user.UserID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	want := map[string]bool{"FIRST_SPROUT": true, "FIELD_BOTANIST": true}
	if len(awarded) != len(want) {
		t.Fatalf("expected %d badges, got %v", len(want), awarded)
	}
	for _, code := range awarded {
		if !want[code] {
			t.Fatalf("unexpected badge %s", code)
		}
	}

	// Checking again awards nothing new.
	awarded, err = svc.CheckBadges(user.UserID)
	if err != nil || len(awarded) != 0 {
		t.Fatalf("second check must award nothing, got %v %v", awarded, err)
	}

	var count int64
	db.Model(&models.UserBadge{}).Where("user_id = ?", user.UserID).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 badge rows, got %d", count)
	}
}

func TestIncrementStatWhitelist(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewGamificationService(db)

	if err := svc.IncrementStat(user.UserID, "xp"); !IsValidation(err) {
		t.Fatalf("xp must not be incrementable directly, got %v", err)
	}
	if err := svc.IncrementStat(user.UserID, StatReviewsGiven); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
}

func TestLeaderboardOrderingAndTies(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleContributor)
	bob := createTestUser(t, db, "bob", models.RoleContributor)
	carol := createTestUser(t, db, "carol", models.RoleContributor)
	svc := NewGamificationService(db)

	base := time.Now().Add(-48 * time.Hour)
	seed := []models.XPEvent{
		{UserID: alice.UserID, Event: "submitted", Points: 10, CreatedAt: base},
		{UserID: alice.UserID, Event: "species_published", Points: 50, CreatedAt: base.Add(time.Hour)},
		// bob and carol tie on score; bob achieved it earlier.
		{UserID: bob.UserID, Event: "submitted", Points: 10, CreatedAt: base.Add(2 * time.Hour)},
		{UserID: carol.UserID, Event: "submitted", Points: 10, CreatedAt: base.Add(3 * time.Hour)},
	}
	for i := range seed {
		id := uint(100 + i)
		seed[i].SpeciesID = &id
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	entries, err := svc.GetLeaderboard(LeaderboardXP, PeriodAllTime, 10)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].UserID != alice.UserID || entries[0].Score != 60 {
		t.Fatalf("unexpected leader: %+v", entries[0])
	}
	if entries[1].UserID != bob.UserID || entries[2].UserID != carol.UserID {
		t.Fatalf("tie must break by earliest achievement: %+v", entries)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 || entries[2].Rank != 3 {
		t.Fatalf("ranks not sequential: %+v", entries)
	}

	if _, err := svc.GetLeaderboard("bogus", PeriodAllTime, 10); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown kind, got %v", err)
	}
	if _, err := svc.GetLeaderboard(LeaderboardXP, "fortnight", 10); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown period, got %v", err)
	}
}

func TestLeaderboardMonthWindow(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleContributor)
	bob := createTestUser(t, db, "bob", models.RoleContributor)
	svc := NewGamificationService(db)

	oldID, newID := uint(1), uint(2)
	old := models.XPEvent{UserID: alice.UserID, Event: "submitted", SpeciesID: &oldID, Points: 500, CreatedAt: time.Now().AddDate(0, -3, 0)}
	recent := models.XPEvent{UserID: bob.UserID, Event: "submitted", SpeciesID: &newID, Points: 10, CreatedAt: time.Now().Add(-24 * time.Hour)}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := db.Create(&recent).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	entries, err := svc.GetLeaderboard(LeaderboardXP, PeriodMonth, 10)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != bob.UserID {
		t.Fatalf("month window must exclude old events: %+v", entries)
	}
}

func TestGetUserProfile(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice", models.RoleContributor)
	svc := NewGamificationService(db)

	if _, err := svc.GetUserProfile(9999); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}

	// A user with no gamification history still has a profile.
	profile, err := svc.GetUserProfile(user.UserID)
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if profile.XP != 0 || profile.Level != 1 || profile.Title != "Seedling" {
		t.Fatalf("unexpected zero profile: %+v", profile)
	}

	speciesID := uint(1)
	if err := svc.AwardXP(user.UserID, models.XPEventSpeciesPublished, &speciesID); err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if _, err := svc.CheckBadges(user.UserID); err != nil {
		t.Fatalf("badge check failed: %v", err)
	}

	profile, err = svc.GetUserProfile(user.UserID)
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if profile.XP != XPPoints[models.XPEventSpeciesPublished] {
		t.Fatalf("xp: want %d, got %d", XPPoints[models.XPEventSpeciesPublished], profile.XP)
	}
	if profile.Level != LevelForXP(profile.XP) {
		t.Fatalf("level must derive from xp")
	}
	if len(profile.Badges) == 0 {
		t.Fatalf("expected FIRST_SPROUT badge in profile")
	}
}
