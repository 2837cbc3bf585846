package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// IdleSetKey is the sorted set of session IDs scored by their expiry time.
	IdleSetKey  = "session_idle"
	snapshotTTL = time.Hour
)

func snapshotKey(id string) string {
	return "session:" + id + ":state"
}

// ScoreRepository persists a player's score.
type ScoreRepository interface {
	SetScore(ctx context.Context, playerID, score int) error
}

// LeaderboardWriter records a nickname's latest score.
type LeaderboardWriter interface {
	Upsert(ctx context.Context, nickname string, score int) error
}

// LandingPublisher announces landed rounds to other systems.
type LandingPublisher interface {
	PublishLanding(ctx context.Context, rec LandingRecord) error
}

// Store is the SessionStore backed by Postgres and Redis. Any dependency
// may be nil; the matching side effect is skipped.
type Store struct {
	db        *sqlx.DB
	rdb       *redis.Client
	scores    ScoreRepository
	leaders   LeaderboardWriter
	publisher LandingPublisher
	idleTTL   time.Duration
}

func NewStore(db *sqlx.DB, rdb *redis.Client, scores ScoreRepository, leaders LeaderboardWriter, publisher LandingPublisher, idleTTL time.Duration) *Store {
	return &Store{
		db:        db,
		rdb:       rdb,
		scores:    scores,
		leaders:   leaders,
		publisher: publisher,
		idleTTL:   idleTTL,
	}
}

func (st *Store) SaveScore(ctx context.Context, playerID, score int) error {
	if st.scores == nil || playerID == 0 {
		return nil
	}
	return st.scores.SetScore(ctx, playerID, score)
}

// RecordLanding saves the new score, updates the leaderboard, appends the
// round to the history table and publishes it. Every step is attempted;
// the errors are joined.
func (st *Store) RecordLanding(ctx context.Context, rec LandingRecord) error {
	var errs []error

	if err := st.SaveScore(ctx, rec.PlayerID, rec.ScoreAfter); err != nil {
		errs = append(errs, fmt.Errorf("save score: %w", err))
	}
	if st.leaders != nil && rec.Nickname != "" {
		if err := st.leaders.Upsert(ctx, rec.Nickname, rec.ScoreAfter); err != nil {
			errs = append(errs, fmt.Errorf("leaderboard: %w", err))
		}
	}
	if st.db != nil && rec.PlayerID != 0 {
		_, err := st.db.ExecContext(ctx,
			`INSERT INTO rounds (session_id, player_id, slot, multiplier, score_before, score_after, bonus, doubled, landed_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			rec.SessionID, rec.PlayerID, rec.Slot, rec.Multiplier, rec.ScoreBefore, rec.ScoreAfter, rec.Bonus, rec.Doubled, rec.LandedAt,
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("insert round: %w", err))
		}
	}
	if st.publisher != nil {
		if err := st.publisher.PublishLanding(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Touch saves the snapshot to Redis and pushes the session's idle deadline.
func (st *Store) Touch(ctx context.Context, snap Snapshot) error {
	if st.rdb == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := st.rdb.TxPipeline()
	pipe.SetEx(ctx, snapshotKey(snap.ID), data, snapshotTTL)
	pipe.ZAdd(ctx, IdleSetKey, redis.Z{Score: float64(snap.LastActivity.Add(st.idleTTL).Unix()), Member: snap.ID})
	_, err = pipe.Exec(ctx)
	return err
}

// Forget removes a session's Redis traces.
func (st *Store) Forget(ctx context.Context, id string) {
	if st.rdb == nil {
		return
	}
	if err := st.rdb.Del(ctx, snapshotKey(id)).Err(); err != nil {
		zap.S().Warnf("[SESSION] failed to delete snapshot %s: %v", id, err)
	}
	if err := st.rdb.ZRem(ctx, IdleSetKey, id).Err(); err != nil {
		zap.S().Debugf("[SESSION] failed to drop %s from the idle set: %v", id, err)
	}
}

// LoadSnapshot reads the last saved snapshot of a session, including
// sessions that live on another instance.
func (st *Store) LoadSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	if st.rdb == nil {
		return nil, ErrSessionNotFound
	}
	data, err := st.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// RoundRow is a persisted landing.
type RoundRow struct {
	ID          int       `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	PlayerID    int       `db:"player_id" json:"player_id"`
	Slot        int       `db:"slot" json:"slot"`
	Multiplier  float64   `db:"multiplier" json:"multiplier"`
	ScoreBefore int       `db:"score_before" json:"score_before"`
	ScoreAfter  int       `db:"score_after" json:"score_after"`
	Bonus       bool      `db:"bonus" json:"bonus"`
	Doubled     bool      `db:"doubled" json:"doubled"`
	LandedAt    time.Time `db:"landed_at" json:"landed_at"`
}

// RecentRounds lists a player's latest landings, newest first.
func (st *Store) RecentRounds(ctx context.Context, playerID, limit int) ([]RoundRow, error) {
	if st.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows := []RoundRow{}
	err := st.db.SelectContext(ctx, &rows,
		`SELECT id, session_id, player_id, slot, multiplier, score_before, score_after, bonus, doubled, landed_at FROM rounds WHERE player_id = $1 ORDER BY landed_at DESC LIMIT $2`,
		playerID, limit)
	return rows, err
}
