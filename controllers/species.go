package controllers

import (
	"net/http"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
)

type SpeciesRequest struct {
	ScientificName string                 `json:"scientific_name" binding:"required"`
	CommonNames    []string               `json:"common_names" binding:"required"`
	Attributes     map[string]interface{} `json:"attributes"`
}

type ReviewerEditRequest struct {
	SpeciesRequest
	ChangeReason string `json:"change_reason" binding:"required"`
}

type RevisionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func lifecycleService() *services.LifecycleService {
	return services.NewLifecycleService(config.DB)
}

func speciesInput(req SpeciesRequest) (services.SpeciesInput, error) {
	attributes, err := services.MarshalAttributes(req.Attributes)
	if err != nil {
		return services.SpeciesInput{}, err
	}
	return services.SpeciesInput{
		ScientificName: req.ScientificName,
		CommonNames:    req.CommonNames,
		Attributes:     attributes,
	}, nil
}

// CreateSpecies creates a new draft record owned by the caller.
func CreateSpecies(c *gin.Context) {
	var req SpeciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := speciesInput(req)
	if err != nil {
		respondError(c, err)
		return
	}

	species, err := lifecycleService().CreateSpecies(currentActor(c), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"species": species})
}

// GetSpecies returns one record by id.
func GetSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	species, err := lifecycleService().GetSpecies(speciesID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}

// GetSpeciesBySlug returns one published record by its slug.
func GetSpeciesBySlug(c *gin.Context) {
	species, err := lifecycleService().GetSpeciesBySlug(c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}

// ListSpecies returns a paginated listing scoped by the caller's role.
func ListSpecies(c *gin.Context) {
	filter := services.SpeciesFilter{
		Status: c.Query("status"),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}
	if userID := queryInt(c, "user_id", 0); userID > 0 {
		id := uint(userID)
		filter.UserID = &id
	}

	species, total, err := lifecycleService().ListSpecies(currentActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"species": species,
		"total":   total,
		"page":    filter.Page,
	})
}

// UpdateSpecies lets the owner edit a draft.
func UpdateSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req SpeciesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := speciesInput(req)
	if err != nil {
		respondError(c, err)
		return
	}

	species, err := lifecycleService().UpdateSpecies(currentActor(c), speciesID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}

// ReviewerEditSpecies lets a reviewer adjust a submission under review.
func ReviewerEditSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req ReviewerEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input, err := speciesInput(req.SpeciesRequest)
	if err != nil {
		respondError(c, err)
		return
	}

	species, err := lifecycleService().ReviewerEdit(currentActor(c), speciesID, input, req.ChangeReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species})
}

// DeleteSpecies removes a draft.
func DeleteSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	if err := lifecycleService().DeleteSpecies(currentActor(c), speciesID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Species deleted successfully"})
}

// SubmitSpecies moves a draft into the review queue.
func SubmitSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	species, err := lifecycleService().SubmitForReview(currentActor(c), speciesID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species, "message": "Submitted for review"})
}

// ResubmitSpecies returns a rejected record to review with a fresh cycle.
func ResubmitSpecies(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	species, err := lifecycleService().ResubmitRejected(currentActor(c), speciesID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species, "message": "Resubmitted for review"})
}

// RequestSpeciesRevision sends a published record back into review.
func RequestSpeciesRevision(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	species, err := lifecycleService().RequestRevision(currentActor(c), speciesID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"species": species, "message": "Revision requested"})
}
