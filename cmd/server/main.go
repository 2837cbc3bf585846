package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/plinkoplus/backend/internal/accounts"
	"github.com/plinkoplus/backend/internal/api"
	"github.com/plinkoplus/backend/internal/config"
	"github.com/plinkoplus/backend/internal/database"
	"github.com/plinkoplus/backend/internal/events"
	"github.com/plinkoplus/backend/internal/game"
	"github.com/plinkoplus/backend/internal/leaderboard"
	"github.com/plinkoplus/backend/internal/logger"
	"github.com/plinkoplus/backend/internal/migrations"
	"github.com/plinkoplus/backend/internal/redis"
	"github.com/plinkoplus/backend/internal/settings"
	"github.com/plinkoplus/backend/internal/ws"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize configuration
	cfg := config.Load()

	log := logger.Init(logger.Options{Environment: cfg.Environment, Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()
	if envErr != nil {
		zap.S().Info("No .env file found, using environment variables")
	}

	boardCfg, err := game.LoadBoardConfig(cfg.BoardConfigPath)
	if err != nil {
		zap.S().Fatalf("Invalid board config %s: %v", cfg.BoardConfigPath, err)
	}
	board := game.NewBoard(boardCfg)

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zap.S().Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		zap.S().Info("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			zap.S().Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		zap.S().Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Optional AMQP publisher for landed rounds
	var publisher game.LandingPublisher
	if cfg.AMQPURL != "" {
		p, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			zap.S().Fatalf("Failed to connect to AMQP: %v", err)
		}
		defer p.Close()
		publisher = p
	} else {
		zap.S().Info("[AMQP] AMQP_URL not set; round events are not published")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	players := accounts.NewRepository(db, rdb, cfg.StartingScore, cfg.PINMaxAttempts, time.Duration(cfg.PINLockoutMinutes)*time.Minute)
	leaders := leaderboard.NewService(leaderboard.NewPostgresRepository(db), leaderboard.NewRedisRepository(rdb), cfg.LeaderboardSize)
	prefs := settings.NewService(settings.NewRedisStore(rdb), cfg.DefaultVolume)
	idleTTL := time.Duration(cfg.SessionIdleSeconds) * time.Second
	store := game.NewStore(db, rdb, players, leaders, publisher, idleTTL)

	hub := ws.NewHub()
	relay := ws.NewRelay(rdb, hub)
	hub.SetRelay(relay)

	sessionCfg := game.SessionConfig{
		StartingScore:  cfg.StartingScore,
		BonusCost:      cfg.BonusCost,
		MultiplierCost: cfg.MultiplierCost,
		TickRate:       cfg.TickRateHz,
	}
	mgr := game.NewManager(ctx, board, sessionCfg, hub, store)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.Deps{
		Config:      cfg,
		Manager:     mgr,
		Store:       store,
		Hub:         hub,
		Players:     players,
		Leaderboard: leaders,
		Settings:    prefs,
		Rounds:      store,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	game.StartIdleWorker(gctx, rdb, mgr, store, time.Duration(cfg.IdleWorkerPollSeconds)*time.Second)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		zap.S().Infof("Starting PlinkoPlus server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		mgr.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("Server stopped with error: %v", err)
	}
}
