package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/auth"
	"github.com/plinkoplus/backend/internal/config"
	"github.com/plinkoplus/backend/internal/models"
)

// PlayerStore is the account storage the handlers need.
type PlayerStore interface {
	Register(ctx context.Context, nickname, pin string) (*models.Player, error)
	Authenticate(ctx context.Context, nickname, pin string) (*models.Player, error)
	Get(ctx context.Context, playerID int) (*models.Player, error)
	ResetScore(ctx context.Context, playerID int) (int, error)
}

type credentials struct {
	Nickname string `json:"nickname"`
	PIN      string `json:"pin"`
}

// Register creates a player and returns a token
// POST /api/v1/auth/register
func Register(players PlayerStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nickname and pin required"})
			return
		}
		p, err := players.Register(c.Request.Context(), strings.TrimSpace(req.Nickname), strings.TrimSpace(req.PIN))
		if err != nil {
			respondError(c, err)
			return
		}
		issueToken(c, p, cfg, http.StatusCreated)
	}
}

// Login validates a nickname/PIN pair and returns a token
// POST /api/v1/auth/login
func Login(players PlayerStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentials
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nickname and pin required"})
			return
		}
		p, err := players.Authenticate(c.Request.Context(), strings.TrimSpace(req.Nickname), strings.TrimSpace(req.PIN))
		if err != nil {
			respondError(c, err)
			return
		}
		issueToken(c, p, cfg, http.StatusOK)
	}
}

func issueToken(c *gin.Context, p *models.Player, cfg *config.Config, status int) {
	token, exp, err := auth.IssueToken(cfg.JWTSecret, p.ID, p.Nickname, time.Duration(cfg.SessionTimeoutMin)*time.Minute)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{
		"token":      token,
		"expires_at": exp.Unix(),
		"player":     gin.H{"id": p.ID, "nickname": p.Nickname, "score": p.Score},
	})
}

// AuthMiddleware validates bearer JWT and sets player_id and nickname in context
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("player_id", claims.PlayerID)
		c.Set("nickname", claims.Nickname)
		c.Next()
	}
}

// GetMe returns the authenticated player's profile
// GET /api/v1/me
func GetMe(players PlayerStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := players.Get(c.Request.Context(), playerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
