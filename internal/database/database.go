package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect establishes a connection to PostgreSQL, retrying while the
// database container is still coming up.
func Connect(databaseURL string) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		db, err = sqlx.Connect("postgres", databaseURL)
		if err == nil {
			break
		}
		zap.S().Warnf("[DB] connect attempt %d failed: %v", attempt, err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}
