package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/game"
)

const commandTimeout = 5 * time.Second

type positionRequest struct {
	X *float64 `json:"x"`
}

// CreateSession opens a session for the player, or returns the live one
// POST /api/v1/sessions
func CreateSession(mgr *game.Manager, players PlayerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := game.PlayerRef{ID: playerID(c), Nickname: c.GetString("nickname"), Score: mgr.Config().StartingScore}
		if players != nil {
			p, err := players.Get(c.Request.Context(), ref.ID)
			if err != nil {
				respondError(c, err)
				return
			}
			ref.Nickname, ref.Score = p.Nickname, p.Score
		}

		s, created := mgr.Open(ref)
		snap, err := snapshot(c, s)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.Header("X-Session-ID", s.ID)
		c.JSON(status, snap)
	}
}

// GetSession returns the session snapshot
// GET /api/v1/sessions/:id
func GetSession(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		snap, err := snapshot(c, s)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})
}

// MoveBall aims the launch ball
// POST /api/v1/sessions/:id/move
func MoveBall(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		x, ok := bindX(c, true)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		if err := s.Move(ctx, x); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"x": x})
	})
}

// DropBall releases the ball; x is optional and defaults to the center
// POST /api/v1/sessions/:id/drop
func DropBall(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		x, ok := bindX(c, false)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		dropX, err := s.Drop(ctx, x)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"x": dropX})
	})
}

// RestartRound starts a new round
// POST /api/v1/sessions/:id/restart
func RestartRound(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		if err := s.Restart(ctx); err != nil {
			respondError(c, err)
			return
		}
		snap, err := snapshot(c, s)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})
}

// BuyBonus buys the three-ball drop
// POST /api/v1/sessions/:id/bonus
func BuyBonus(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		score, err := s.BuyBonus(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"score": score, "bonus_active": true})
	})
}

// BuyDouble doubles the slot multipliers for the round
// POST /api/v1/sessions/:id/double
func BuyDouble(mgr *game.Manager) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
		defer cancel()
		score, err := s.BuyDouble(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"score": score, "multiplier_used": true})
	})
}

// CloseSession ends the session
// DELETE /api/v1/sessions/:id
func CloseSession(mgr *game.Manager, store *game.Store) gin.HandlerFunc {
	return withSession(mgr, func(c *gin.Context, s *game.Session) {
		if err := mgr.Close(s.ID, game.StatusClosed); err != nil {
			respondError(c, err)
			return
		}
		if store != nil {
			store.Forget(c.Request.Context(), s.ID)
		}
		c.Status(http.StatusNoContent)
	})
}

// withSession loads the :id session and checks it belongs to the caller.
func withSession(mgr *game.Manager, fn func(*gin.Context, *game.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := mgr.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if s.PlayerID != playerID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your session"})
			return
		}
		fn(c, s)
	}
}

// bindX reads {"x": ...}. A missing body or x yields NaN, which the
// resolver treats as the board center.
func bindX(c *gin.Context, required bool) (float64, bool) {
	var req positionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return 0, false
		}
	}
	if req.X == nil {
		if required {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x required"})
			return 0, false
		}
		return math.NaN(), true
	}
	return *req.X, true
}

func snapshot(c *gin.Context, s *game.Session) (game.Snapshot, error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	return s.Snapshot(ctx)
}
