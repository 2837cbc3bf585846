package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/accounts"
	"github.com/plinkoplus/backend/internal/game"
	"go.uber.org/zap"
)

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, accounts.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, game.ErrInsufficientScore):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrBonusActive),
		errors.Is(err, game.ErrMultiplierUsed),
		errors.Is(err, game.ErrBallDropped),
		errors.Is(err, game.ErrRoundInProgress),
		errors.Is(err, accounts.ErrNicknameTaken):
		status = http.StatusConflict
	case errors.Is(err, accounts.ErrInvalidNickname), errors.Is(err, accounts.ErrInvalidPIN):
		status = http.StatusBadRequest
	case errors.Is(err, accounts.ErrBadCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, accounts.ErrLocked):
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	default:
		zap.S().Errorf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// playerID returns the authenticated player set by AuthMiddleware.
func playerID(c *gin.Context) int {
	return c.GetInt("player_id")
}
