package controllers

import (
	"net/http"
	"strconv"

	"species-encyclopedia-api/services"

	"github.com/gin-gonic/gin"
)

// respondError maps domain error kinds onto HTTP statuses. Anything that is
// not a domain error is an internal failure and must not leak its message.
func respondError(c *gin.Context, err error) {
	kind, ok := services.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch kind {
	case services.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case services.KindInvalidState, services.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// currentActor pulls the authenticated user out of the gin context set by
// AuthMiddleware.
func currentActor(c *gin.Context) services.Actor {
	userID, _ := c.Get("userID")
	roleID, _ := c.Get("roleID")
	return services.Actor{
		UserID: userID.(uint),
		RoleID: roleID.(int),
	}
}

func paramUint(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(value), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return value
}
