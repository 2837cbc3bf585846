package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// AMQP (optional round event publishing)
	AMQPURL      string
	AMQPExchange string

	// Server
	Port        string
	FrontendURL string

	// Logging
	LogLevel string
	LogFile  string

	// Board
	BoardConfigPath string

	// Game Settings
	StartingScore         int
	BonusCost             int
	MultiplierCost        int
	TickRateHz            int
	SessionIdleSeconds    int
	IdleWorkerPollSeconds int
	LeaderboardSize       int
	DefaultVolume         float64

	// Security
	JWTSecret         string
	SessionTimeoutMin int
	PINMaxAttempts    int
	PINLockoutMinutes int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/plinkoplus?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// AMQP
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "plinko.rounds"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Board
		BoardConfigPath: getEnv("BOARD_CONFIG", "configs/board.yaml"),

		// Game Settings
		StartingScore:         getEnvInt("STARTING_SCORE", 500),
		BonusCost:             getEnvInt("BONUS_COST", 300),
		MultiplierCost:        getEnvInt("MULTIPLIER_COST", 500),
		TickRateHz:            getEnvInt("TICK_RATE_HZ", 60),
		SessionIdleSeconds:    getEnvInt("SESSION_IDLE_SECONDS", 900),
		IdleWorkerPollSeconds: getEnvInt("IDLE_WORKER_POLL_SECONDS", 15),
		LeaderboardSize:       getEnvInt("LEADERBOARD_SIZE", 10),
		DefaultVolume:         getEnvFloat("DEFAULT_VOLUME", 0.5),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 1440),
		PINMaxAttempts:    getEnvInt("PIN_MAX_ATTEMPTS", 5),
		PINLockoutMinutes: getEnvInt("PIN_LOCKOUT_MINUTES", 15),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
