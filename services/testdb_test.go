package services

import (
	"testing"
	"time"

	"species-encyclopedia-api/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// An in-memory sqlite database is scoped to its connection, so the pool
	// must never open a second one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access test database pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Species{},
		&models.SpeciesCommonName{},
		&models.SpeciesReview{},
		&models.SpeciesPhoto{},
		&models.ActivityLog{},
		&models.UserStats{},
		&models.XPEvent{},
		&models.UserBadge{},
		&models.Notification{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string, roleID int) models.User {
	t.Helper()

	now := time.Now()
	user := models.User{
		UserFname: name,
		Email:     name + "@example.com",
		Password:  "hashed",
		RoleID:    roleID,
		CreateAt:  &now,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

func createDraft(t *testing.T, db *gorm.DB, owner models.User, scientificName string) *models.Species {
	t.Helper()

	svc := NewLifecycleService(db)
	sp, err := svc.CreateSpecies(actorFor(owner), SpeciesInput{
		ScientificName: scientificName,
		CommonNames:    []string{"test plant"},
	})
	if err != nil {
		t.Fatalf("failed to create draft: %v", err)
	}
	return sp
}

func submitDraft(t *testing.T, db *gorm.DB, owner models.User, speciesID uint) {
	t.Helper()

	if _, err := NewLifecycleService(db).SubmitForReview(actorFor(owner), speciesID); err != nil {
		t.Fatalf("failed to submit species %d: %v", speciesID, err)
	}
}

func actorFor(user models.User) Actor {
	return Actor{UserID: user.UserID, RoleID: user.RoleID}
}
