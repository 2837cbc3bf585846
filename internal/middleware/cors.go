package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/plinkoplus/backend/internal/config"
	"go.uber.org/zap"
)

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	zap.S().Infof("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length", "X-Session-ID",
		},
		MaxAge: 12 * time.Hour, // Cache preflight responses
	}

	corsConfig.AllowOrigins = AllowedOrigins(cfg)
	corsConfig.AllowCredentials = true
	if len(corsConfig.AllowOrigins) == 0 {
		zap.S().Warn("[CORS] FRONTEND_URL not set; cross-origin requests are rejected")
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	}
	if cfg.Environment != "development" {
		zap.S().Infof("[CORS] Production allowed origins: %v", corsConfig.AllowOrigins)
	}

	return cors.New(corsConfig)
}

// AllowedOrigins lists the browser origins the API accepts.
func AllowedOrigins(cfg *config.Config) []string {
	if cfg.Environment == "development" {
		origins := []string{
			"http://localhost:5173", // Vite dev server
			"http://127.0.0.1:5173",
		}
		if cfg.FrontendURL != "" && cfg.FrontendURL != origins[0] {
			origins = append(origins, cfg.FrontendURL)
		}
		return origins
	}
	if cfg.FrontendURL != "" {
		return []string{cfg.FrontendURL}
	}
	return []string{}
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	allowedOrigins := AllowedOrigins(cfg)
	return func(c *gin.Context) {
		// Only check for WebSocket upgrade requests
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// Native clients do not send an origin
			c.Next()
			return
		}

		allowed := false
		if cfg.Environment == "development" {
			allowed = strings.HasPrefix(origin, "http://localhost:") ||
				strings.HasPrefix(origin, "http://127.0.0.1:")
		}
		for _, o := range allowedOrigins {
			if origin == o {
				allowed = true
				break
			}
		}

		if !allowed {
			c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
			return
		}

		c.Next()
	}
}
