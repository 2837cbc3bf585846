package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeScores struct {
	calls int
	err   error
}

func (f *fakeScores) SetScore(context.Context, int, int) error {
	f.calls++
	return f.err
}

type fakeLeaders struct {
	got map[string]int
	err error
}

func (f *fakeLeaders) Upsert(_ context.Context, nickname string, score int) error {
	if f.got == nil {
		f.got = make(map[string]int)
	}
	f.got[nickname] = score
	return f.err
}

type fakePublisher struct {
	recs []LandingRecord
	err  error
}

func (f *fakePublisher) PublishLanding(_ context.Context, rec LandingRecord) error {
	f.recs = append(f.recs, rec)
	return f.err
}

func TestStoreWithoutBackends(t *testing.T) {
	st := NewStore(nil, nil, nil, nil, nil, time.Minute)
	ctx := context.Background()

	if err := st.RecordLanding(ctx, LandingRecord{PlayerID: 1, Nickname: "ace"}); err != nil {
		t.Errorf("RecordLanding: %v", err)
	}
	if err := st.Touch(ctx, Snapshot{ID: "x"}); err != nil {
		t.Errorf("Touch: %v", err)
	}
	if _, err := st.LoadSnapshot(ctx, "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("LoadSnapshot: %v", err)
	}
	rows, err := st.RecentRounds(ctx, 1, 10)
	if err != nil || len(rows) != 0 {
		t.Errorf("RecentRounds = %v, %v", rows, err)
	}
	st.Forget(ctx, "x")
}

func TestRecordLanding(t *testing.T) {
	scores := &fakeScores{}
	leaders := &fakeLeaders{}
	pub := &fakePublisher{}
	st := NewStore(nil, nil, scores, leaders, pub, time.Minute)

	rec := LandingRecord{SessionID: "s", PlayerID: 3, Nickname: "ace", ScoreAfter: 1900}
	if err := st.RecordLanding(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	if scores.calls != 1 || leaders.got["ace"] != 1900 || len(pub.recs) != 1 {
		t.Errorf("scores=%d leaders=%v published=%d", scores.calls, leaders.got, len(pub.recs))
	}

	// guests have no account and no leaderboard entry
	if err := st.RecordLanding(context.Background(), LandingRecord{SessionID: "g"}); err != nil {
		t.Fatal(err)
	}
	if scores.calls != 1 || len(leaders.got) != 1 {
		t.Errorf("guest landing touched accounts: scores=%d leaders=%v", scores.calls, leaders.got)
	}
	if len(pub.recs) != 2 {
		t.Errorf("guest landings are still published")
	}
}

func TestRecordLandingJoinsErrors(t *testing.T) {
	errScore := errors.New("db down")
	errPub := errors.New("broker down")
	leaders := &fakeLeaders{}
	st := NewStore(nil, nil, &fakeScores{err: errScore}, leaders, &fakePublisher{err: errPub}, time.Minute)

	err := st.RecordLanding(context.Background(), LandingRecord{PlayerID: 3, Nickname: "ace", ScoreAfter: 10})
	if !errors.Is(err, errScore) || !errors.Is(err, errPub) {
		t.Errorf("expected both errors, got %v", err)
	}
	if leaders.got["ace"] != 10 {
		t.Error("leaderboard update should still run after a score failure")
	}
}

func TestForgetLogsRedisFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	st := NewStore(nil, rdb, nil, nil, nil, time.Minute)

	st.Forget(context.Background(), "s9")

	if logs.FilterMessageSnippet("delete snapshot s9").Len() != 1 {
		t.Error("snapshot delete failure not logged")
	}
	if logs.FilterMessageSnippet("drop s9 from the idle set").Len() != 1 {
		t.Error("idle set removal failure not logged")
	}
}
