package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/game"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{
			"status":  "ok",
			"service": "plinkoplus-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
		}
		if mgr != nil {
			resp["active_sessions"] = mgr.ActiveCount()
		}
		c.JSON(http.StatusOK, resp)
	}
}
