package api

import (
	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/api/handlers"
	"github.com/plinkoplus/backend/internal/config"
	"github.com/plinkoplus/backend/internal/game"
	"github.com/plinkoplus/backend/internal/middleware"
	"github.com/plinkoplus/backend/internal/ws"
	"go.uber.org/zap"
)

// Deps are the services the routes are served by. Players, Rounds and
// Store may be nil when the database is not configured.
type Deps struct {
	Config      *config.Config
	Manager     *game.Manager
	Store       *game.Store
	Hub         *ws.Hub
	Players     handlers.PlayerStore
	Leaderboard handlers.Leaderboard
	Settings    handlers.SettingsService
	Rounds      handlers.RoundHistory
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		zap.S().Info("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Manager))
		v1.GET("/config", handlers.GetConfig(cfg, d.Manager.Board()))
		v1.GET("/leaderboard", handlers.GetLeaderboard(d.Leaderboard))

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handlers.Register(d.Players, cfg))
			authGroup.POST("/login", handlers.Login(d.Players, cfg))
		}

		// Websocket auth uses the token query parameter
		var snaps ws.SnapshotLoader
		if d.Store != nil {
			snaps = d.Store
		}
		v1.GET("/sessions/:id/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(d.Manager, d.Hub, snaps, cfg.JWTSecret))

		authed := v1.Group("", handlers.AuthMiddleware(cfg))
		{
			authed.GET("/me", handlers.GetMe(d.Players))

			sessions := authed.Group("/sessions")
			{
				sessions.POST("", handlers.CreateSession(d.Manager, d.Players))
				sessions.GET("/:id", handlers.GetSession(d.Manager))
				sessions.POST("/:id/move", handlers.MoveBall(d.Manager))
				sessions.POST("/:id/drop", handlers.DropBall(d.Manager))
				sessions.POST("/:id/restart", handlers.RestartRound(d.Manager))
				sessions.POST("/:id/bonus", handlers.BuyBonus(d.Manager))
				sessions.POST("/:id/double", handlers.BuyDouble(d.Manager))
				sessions.DELETE("/:id", handlers.CloseSession(d.Manager, d.Store))
			}

			authed.DELETE("/leaderboard", handlers.ResetLeaderboard(d.Leaderboard, d.Settings, d.Players, d.Manager))
			authed.GET("/settings", handlers.GetSettings(d.Settings))
			authed.PUT("/settings", handlers.UpdateSettings(d.Settings))

			player := authed.Group("/player")
			{
				player.POST("/score/reset", handlers.ResetScore(d.Players, d.Manager))
				player.GET("/rounds", handlers.GetRounds(d.Rounds))
			}
		}
	}
}
