package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/settings"
)

// GetSettings returns the caller's settings
// GET /api/v1/settings
func GetSettings(prefs SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := prefs.Get(c.Request.Context(), playerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// UpdateSettings applies a partial update
// PUT /api/v1/settings
func UpdateSettings(prefs SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch settings.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
			return
		}
		st, err := prefs.Update(c.Request.Context(), playerID(c), patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
