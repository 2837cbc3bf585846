package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/config"
	"github.com/plinkoplus/backend/internal/game"
)

// GetConfig returns the board geometry and economy the client renders with
// GET /api/v1/config
func GetConfig(cfg *config.Config, board *game.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		minX, maxX := board.DropWindow()
		c.JSON(http.StatusOK, gin.H{
			"board":           board.Config,
			"pegs":            board.Pegs,
			"slots":           board.SlotRects,
			"drop_window":     gin.H{"min": minX, "max": maxX},
			"launch_y":        board.LaunchY(),
			"starting_score":  cfg.StartingScore,
			"bonus_cost":      cfg.BonusCost,
			"multiplier_cost": cfg.MultiplierCost,
			"tick_rate_hz":    cfg.TickRateHz,
		})
	}
}
