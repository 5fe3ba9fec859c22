package controllers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/models"
	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxPhotoSize = 10 << 20 // 10MB

func photoUploadDir() string {
	dir := os.Getenv("UPLOAD_PATH")
	if dir == "" {
		dir = "./uploads"
	}
	return filepath.Join(dir, "species_photos")
}

// UploadSpeciesPhoto stores one photo for an owned species. The file lands on
// disk under a uuid name; the original name is kept for display only.
func UploadSpeciesPhoto(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	actor := currentActor(c)

	var species models.Species
	if err := config.DB.First(&species, "species_id = ?", speciesID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Species not found"})
		return
	}
	if species.CreatedBy != actor.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the species owner may upload photos"})
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo file is required"})
		return
	}
	if file.Size > maxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Photo exceeds the 10MB limit"})
		return
	}

	photo := models.SpeciesPhoto{
		SpeciesID:    species.SpeciesID,
		OriginalName: file.Filename,
		MimeType:     file.Header.Get("Content-Type"),
		FileSize:     file.Size,
		UploadedBy:   actor.UserID,
		UploadedAt:   time.Now(),
	}
	if !photo.IsValidImageType() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported image type"})
		return
	}
	if caption := c.PostForm("caption"); caption != "" {
		photo.Caption = &caption
	}

	dir := photoUploadDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
		return
	}
	storedName := uuid.New().String() + filepath.Ext(file.Filename)
	photo.StoredPath = filepath.Join(dir, storedName)

	if err := c.SaveUploadedFile(file, photo.StoredPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&photo).Error; err != nil {
			return err
		}
		activity := services.NewActivityService(config.DB)
		details := fmt.Sprintf("photo '%s'", photo.OriginalName)
		activity.Log(tx, actor.UserID, models.ActivityPhotoUploaded, &species.SpeciesID, &details)
		return nil
	})
	if err != nil {
		os.Remove(photo.StoredPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store photo"})
		return
	}

	gamification := services.NewGamificationService(config.DB)
	if err := gamification.AwardXP(actor.UserID, models.XPEventPhotoUploaded, &species.SpeciesID); err != nil && !services.IsConflict(err) {
		log.Printf("photo upload xp award failed (user=%d species=%d): %v", actor.UserID, species.SpeciesID, err)
	}

	c.JSON(http.StatusCreated, gin.H{"photo": photo})
}

// ListSpeciesPhotos returns every photo of a species.
func ListSpeciesPhotos(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var photos []models.SpeciesPhoto
	if err := config.DB.Where("species_id = ?", speciesID).
		Order("uploaded_at ASC").
		Find(&photos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load photos"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func decidePhoto(c *gin.Context, approve bool) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	photoID, ok := paramUint(c, "photo_id")
	if !ok {
		return
	}
	actor := currentActor(c)

	if !actor.IsReviewer() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Reviewer role required"})
		return
	}

	var photo models.SpeciesPhoto
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&photo, "photo_id = ? AND species_id = ?", photoID, speciesID).Error; err != nil {
			return services.NotFound("photo not found")
		}
		if photo.UploadedBy == actor.UserID {
			return services.Forbidden("you cannot review your own photo")
		}
		if !photo.Pending() {
			return services.InvalidState("photo has already been reviewed")
		}

		now := time.Now()
		result := tx.Model(&models.SpeciesPhoto{}).
			Where("photo_id = ? AND approved = ? AND rejected = ?", photo.PhotoID, false, false).
			Updates(map[string]interface{}{
				"approved":    approve,
				"rejected":    !approve,
				"reviewed_by": actor.UserID,
				"reviewed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return services.Conflict("photo was reviewed concurrently")
		}

		action := models.ActivityPhotoApproved
		if !approve {
			action = models.ActivityPhotoRejected
		}
		activity := services.NewActivityService(config.DB)
		details := fmt.Sprintf("photo '%s'", photo.OriginalName)
		activity.Log(tx, actor.UserID, action, &photo.SpeciesID, &details)
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if approve {
		gamification := services.NewGamificationService(config.DB)
		if err := gamification.AwardXP(photo.UploadedBy, models.XPEventPhotoApproved, &photo.SpeciesID); err != nil && !services.IsConflict(err) {
			log.Printf("photo approval xp award failed (user=%d species=%d): %v", photo.UploadedBy, photo.SpeciesID, err)
		}
		if err := gamification.IncrementStat(photo.UploadedBy, services.StatPhotosApproved); err != nil {
			log.Printf("photos_approved increment failed (user=%d): %v", photo.UploadedBy, err)
		}
		if _, err := gamification.CheckBadges(photo.UploadedBy); err != nil {
			log.Printf("badge check failed (user=%d): %v", photo.UploadedBy, err)
		}
	}

	message := "Photo approved"
	if !approve {
		message = "Photo rejected"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// ApproveSpeciesPhoto marks a pending photo approved.
func ApproveSpeciesPhoto(c *gin.Context) {
	decidePhoto(c, true)
}

// RejectSpeciesPhoto marks a pending photo rejected.
func RejectSpeciesPhoto(c *gin.Context) {
	decidePhoto(c, false)
}

// SetPrimaryPhoto flags one approved photo as the species' primary image and
// clears the flag from every other photo of the species.
func SetPrimaryPhoto(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	photoID, ok := paramUint(c, "photo_id")
	if !ok {
		return
	}
	actor := currentActor(c)

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var species models.Species
		if err := tx.First(&species, "species_id = ?", speciesID).Error; err != nil {
			return services.NotFound("species not found")
		}
		if species.CreatedBy != actor.UserID {
			return services.Forbidden("only the species owner may choose the primary photo")
		}

		var photo models.SpeciesPhoto
		if err := tx.First(&photo, "photo_id = ? AND species_id = ?", photoID, speciesID).Error; err != nil {
			return services.NotFound("photo not found")
		}
		if !photo.Approved {
			return services.InvalidState("only approved photos can be primary")
		}

		if err := tx.Model(&models.SpeciesPhoto{}).
			Where("species_id = ?", speciesID).
			Update("is_primary", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.SpeciesPhoto{}).
			Where("photo_id = ?", photoID).
			Update("is_primary", true).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Primary photo updated"})
}
