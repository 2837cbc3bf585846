// Package accounts stores players, their PINs and their persisted score.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plinkoplus/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNicknameTaken   = errors.New("nickname already taken")
	ErrInvalidNickname = errors.New("nickname must be 3-20 letters, digits or underscores")
	ErrInvalidPIN      = errors.New("PIN must be exactly 4 digits")
	ErrBadCredentials  = errors.New("incorrect nickname or PIN")
	ErrLocked          = errors.New("account temporarily locked due to too many failed attempts")
	ErrNotFound        = errors.New("player not found")
)

var (
	nicknameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	pinRe      = regexp.MustCompile(`^[0-9]{4}$`)
)

const playerColumns = `id, nickname, pin_hash, score, is_active, created_at, last_active`

// Repository manages player rows. Failed logins are counted in Redis when a
// client is supplied.
type Repository struct {
	db            *sqlx.DB
	rdb           *redis.Client
	startingScore int
	maxAttempts   int
	lockout       time.Duration
}

func NewRepository(db *sqlx.DB, rdb *redis.Client, startingScore, maxAttempts int, lockout time.Duration) *Repository {
	return &Repository{db: db, rdb: rdb, startingScore: startingScore, maxAttempts: maxAttempts, lockout: lockout}
}

// StartingScore is the score new and reset players get.
func (r *Repository) StartingScore() int {
	return r.startingScore
}

// ValidateCredentials checks the format of a nickname and PIN.
func ValidateCredentials(nickname, pin string) error {
	if !nicknameRe.MatchString(nickname) {
		return ErrInvalidNickname
	}
	if !pinRe.MatchString(pin) {
		return ErrInvalidPIN
	}
	return nil
}

// Register creates a player with the starting score.
func (r *Repository) Register(ctx context.Context, nickname, pin string) (*models.Player, error) {
	nickname = strings.TrimSpace(nickname)
	if err := ValidateCredentials(nickname, pin); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash pin: %w", err)
	}

	var p models.Player
	err = r.db.GetContext(ctx, &p,
		`INSERT INTO players (nickname, pin_hash, score, is_active, created_at) VALUES ($1, $2, $3, true, NOW())
		 ON CONFLICT (nickname) DO NOTHING RETURNING `+playerColumns,
		nickname, string(hash), r.startingScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNicknameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert player: %w", err)
	}
	zap.S().Infof("[ACCOUNTS] registered player %d (%s)", p.ID, p.Nickname)
	return &p, nil
}

// Authenticate checks a nickname/PIN pair. Too many failures lock the
// nickname for the lockout period.
func (r *Repository) Authenticate(ctx context.Context, nickname, pin string) (*models.Player, error) {
	nickname = strings.TrimSpace(nickname)
	attemptsKey := "pin_attempts:" + strings.ToLower(nickname)

	if r.rdb != nil && r.maxAttempts > 0 {
		n, err := r.rdb.Get(ctx, attemptsKey).Int()
		if err == nil && n >= r.maxAttempts {
			return nil, ErrLocked
		}
	}

	var p models.Player
	err := r.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE nickname=$1`, nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PinHash), []byte(pin)); err != nil {
		if r.rdb != nil && r.maxAttempts > 0 {
			pipe := r.rdb.TxPipeline()
			pipe.Incr(ctx, attemptsKey)
			pipe.Expire(ctx, attemptsKey, r.lockout)
			if _, perr := pipe.Exec(ctx); perr != nil {
				zap.S().Warnf("[ACCOUNTS] failed to count PIN attempt for %s: %v", nickname, perr)
			}
		}
		return nil, ErrBadCredentials
	}

	r.markLogin(ctx, attemptsKey, p.ID)
	return &p, nil
}

// markLogin clears the failed-attempt counter and stamps last_active.
// Failures are logged; the login itself already succeeded.
func (r *Repository) markLogin(ctx context.Context, attemptsKey string, playerID int) {
	if r.rdb != nil {
		if err := r.rdb.Del(ctx, attemptsKey).Err(); err != nil {
			zap.S().Debugf("[ACCOUNTS] failed to clear %s: %v", attemptsKey, err)
		}
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE players SET last_active = NOW() WHERE id = $1`, playerID); err != nil {
		zap.S().Debugf("[ACCOUNTS] failed to update last_active for player %d: %v", playerID, err)
	}
}

// Get loads a player by ID.
func (r *Repository) Get(ctx context.Context, playerID int) (*models.Player, error) {
	var p models.Player
	err := r.db.GetContext(ctx, &p, `SELECT `+playerColumns+` FROM players WHERE id=$1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load player %d: %w", playerID, err)
	}
	return &p, nil
}

// Score returns the player's persisted score.
func (r *Repository) Score(ctx context.Context, playerID int) (int, error) {
	var score int
	err := r.db.GetContext(ctx, &score, `SELECT score FROM players WHERE id=$1`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return score, err
}

// SetScore overwrites the player's persisted score.
func (r *Repository) SetScore(ctx context.Context, playerID, score int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE players SET score = $1, last_active = NOW() WHERE id = $2`, score, playerID)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetScore puts the player's score back to the starting value.
func (r *Repository) ResetScore(ctx context.Context, playerID int) (int, error) {
	if err := r.SetScore(ctx, playerID, r.startingScore); err != nil {
		return 0, err
	}
	return r.startingScore, nil
}
