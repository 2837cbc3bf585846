package leaderboard

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/plinkoplus/backend/internal/models"
)

// PostgresRepository is the leaders table.
type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, nickname string, score int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leaders (nickname, score, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (nickname) DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
	`, nickname, score)
	return err
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Leader, error) {
	leaders := []models.Leader{}
	err := r.db.SelectContext(ctx, &leaders, `SELECT nickname, score, updated_at FROM leaders ORDER BY score DESC, nickname ASC`)
	return leaders, err
}

func (r *PostgresRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM leaders`)
	return err
}
