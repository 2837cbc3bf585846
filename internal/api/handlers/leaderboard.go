package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/game"
	"github.com/plinkoplus/backend/internal/models"
	"github.com/plinkoplus/backend/internal/settings"
	"go.uber.org/zap"
)

type Leaderboard interface {
	Top(ctx context.Context, n int) ([]models.Leader, error)
	Reset(ctx context.Context) error
}

type SettingsService interface {
	Get(ctx context.Context, playerID int) (models.Settings, error)
	Update(ctx context.Context, playerID int, p settings.Patch) (models.Settings, error)
	Reset(ctx context.Context, playerID int) (models.Settings, error)
}

// GetLeaderboard returns the top leaders; ?limit= overrides the size
// GET /api/v1/leaderboard
func GetLeaderboard(lb Leaderboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, _ := strconv.Atoi(c.Query("limit"))
		if n < 0 || n > 100 {
			n = 0
		}
		leaders, err := lb.Top(c.Request.Context(), n)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaders": leaders})
	}
}

// ResetLeaderboard clears saved leaders and restores the caller's settings
// and score
// DELETE /api/v1/leaderboard
func ResetLeaderboard(lb Leaderboard, prefs SettingsService, players PlayerStore, mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := playerID(c)

		if err := lb.Reset(ctx); err != nil {
			respondError(c, err)
			return
		}
		st, err := prefs.Reset(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		score, err := resetScore(ctx, id, players, mgr)
		if err != nil {
			respondError(c, err)
			return
		}
		zap.S().Infof("[LEADERBOARD] reset by player %d", id)
		c.JSON(http.StatusOK, gin.H{"settings": st, "score": score})
	}
}

// ResetScore puts the caller's score back to the starting value
// POST /api/v1/player/score/reset
func ResetScore(players PlayerStore, mgr *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		score, err := resetScore(c.Request.Context(), playerID(c), players, mgr)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"score": score})
	}
}

// resetScore resets the persisted score and the live session's copy.
func resetScore(ctx context.Context, id int, players PlayerStore, mgr *game.Manager) (int, error) {
	score := mgr.Config().StartingScore
	if players != nil {
		var err error
		if score, err = players.ResetScore(ctx, id); err != nil {
			return 0, err
		}
	}
	if s, err := mgr.ForPlayer(id); err == nil {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if _, err := s.ResetScore(cctx); err != nil {
			return 0, err
		}
	}
	return score, nil
}
