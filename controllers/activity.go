package controllers

import (
	"net/http"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
)

func activityService() *services.ActivityService {
	return services.NewActivityService(config.DB)
}

// GetSpeciesActivity returns the audit trail of one species, newest first.
func GetSpeciesActivity(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	entries, total, err := activityService().GetSpeciesActivity(speciesID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"total":    total,
		"page":     page,
	})
}

// GetGlobalActivity returns the site-wide feed with optional filters.
func GetGlobalActivity(c *gin.Context) {
	filter := services.ActivityFilter{
		Action: c.Query("action"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if userID := queryInt(c, "user_id", 0); userID > 0 {
		id := uint(userID)
		filter.UserID = &id
	}
	if speciesID := queryInt(c, "species_id", 0); speciesID > 0 {
		id := uint(speciesID)
		filter.SpeciesID = &id
	}

	entries, total, err := activityService().GetGlobalActivity(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity": entries,
		"total":    total,
		"page":     filter.Page,
	})
}
