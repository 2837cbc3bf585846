package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/game"
)

type RoundHistory interface {
	RecentRounds(ctx context.Context, playerID, limit int) ([]game.RoundRow, error)
}

// GetRounds lists the caller's latest landed rounds
// GET /api/v1/player/rounds?limit=
func GetRounds(history RoundHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		rounds, err := history.RecentRounds(c.Request.Context(), playerID(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		if rounds == nil {
			rounds = []game.RoundRow{}
		}
		c.JSON(http.StatusOK, gin.H{"rounds": rounds})
	}
}
