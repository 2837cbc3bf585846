package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/plinkoplus/backend/internal/accounts"
	"github.com/plinkoplus/backend/internal/config"
	"github.com/plinkoplus/backend/internal/database"
	"github.com/plinkoplus/backend/internal/leaderboard"
	"github.com/plinkoplus/backend/internal/logger"
	"go.uber.org/zap"
)

// seed-player creates a player account and optionally saves it on the
// leaderboard, for local testing.
func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel})
	defer log.Sync()
	if envErr != nil {
		zap.S().Info("No .env file found, using environment variables")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zap.S().Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	nickname := os.Getenv("SEED_NICKNAME")
	if nickname == "" {
		nickname = "tester"
		zap.S().Infof("Using default nickname: %s", nickname)
	}
	pin := os.Getenv("SEED_PIN")
	if pin == "" {
		pin = "0000"
		zap.S().Warn("WARNING: Using default PIN 0000. Set SEED_PIN for anything shared!")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	players := accounts.NewRepository(db, nil, cfg.StartingScore, 0, 0)
	p, err := players.Register(ctx, nickname, pin)
	if errors.Is(err, accounts.ErrNicknameTaken) {
		zap.S().Infof("Player %s already exists", nickname)
		return
	}
	if err != nil {
		zap.S().Fatalf("Failed to create player: %v", err)
	}

	if os.Getenv("SEED_LEADERBOARD") == "true" {
		lb := leaderboard.NewService(leaderboard.NewPostgresRepository(db), nil, cfg.LeaderboardSize)
		if err := lb.Upsert(ctx, p.Nickname, p.Score); err != nil {
			zap.S().Fatalf("Failed to save leader: %v", err)
		}
	}

	zap.S().Infof("Player %s created (id=%d, score=%d)", p.Nickname, p.ID, p.Score)
}
