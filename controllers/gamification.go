package controllers

import (
	"net/http"

	"species-encyclopedia-api/config"
	"species-encyclopedia-api/models"
	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
)

func gamificationService() *services.GamificationService {
	return services.NewGamificationService(config.DB)
}

// GetLeaderboard returns one ranking. kind selects xp, contributors or
// reviewers; period selects all_time or the trailing month.
func GetLeaderboard(c *gin.Context) {
	kind := c.DefaultQuery("kind", services.LeaderboardXP)
	period := c.DefaultQuery("period", services.PeriodAllTime)
	limit := queryInt(c, "limit", 10)

	entries, err := gamificationService().GetLeaderboard(kind, period, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"kind":        kind,
		"period":      period,
	})
}

// GetGamificationProfile returns a user's XP, derived level and title,
// counters and earned badges.
func GetGamificationProfile(c *gin.Context) {
	userID, ok := paramUint(c, "user_id")
	if !ok {
		return
	}

	profile, err := gamificationService().GetUserProfile(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetMyGamificationProfile is the authenticated shortcut for the caller's own
// profile.
func GetMyGamificationProfile(c *gin.Context) {
	actor := currentActor(c)
	profile, err := gamificationService().GetUserProfile(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetBadgeCatalog returns every badge the system can award.
func GetBadgeCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"badges": models.BadgeCatalog})
}
