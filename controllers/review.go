package controllers

import (
	"net/http"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
)

type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comments string `json:"comments"`
}

func reviewService() *services.ReviewService {
	return services.NewReviewService(config.DB)
}

// SubmitReview records a reviewer decision and returns the consensus
// snapshot that resulted from it.
func SubmitReview(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := reviewService().SubmitReview(currentActor(c), speciesID, req.Decision, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review_status": status})
}

// GetReviewStatus returns the current-cycle consensus snapshot.
func GetReviewStatus(c *gin.Context) {
	speciesID, ok := paramUint(c, "id")
	if !ok {
		return
	}

	status, err := reviewService().GetReviewStatus(speciesID)
	if err != nil {
		respondError(c, err)
		return
	}

	actor := currentActor(c)
	reviewed, err := reviewService().HasUserReviewed(speciesID, actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"review_status": status,
		"has_reviewed":  reviewed,
	})
}

// GetReviewQueue lists submissions awaiting the caller's decision.
func GetReviewQueue(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	species, total, err := reviewService().GetReviewQueue(currentActor(c), c.Query("type"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue": species,
		"total": total,
		"page":  page,
	})
}
