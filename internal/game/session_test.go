package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu       sync.Mutex
	scores   map[int]int
	landings []LandingRecord
	touches  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{scores: make(map[int]int)}
}

func (f *fakeStore) SaveScore(_ context.Context, playerID, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[playerID] = score
	return nil
}

func (f *fakeStore) RecordLanding(_ context.Context, rec LandingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.landings = append(f.landings, rec)
	f.scores[rec.PlayerID] = rec.ScoreAfter
	return nil
}

func (f *fakeStore) Touch(context.Context, Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return nil
}

// chanSink forwards events to a buffered channel, dropping when full.
type chanSink chan Event

func (c chanSink) Publish(_ string, ev Event) {
	select {
	case c <- ev:
	default:
	}
}

func newTestSession(score int, store SessionStore) *Session {
	return NewSession("s1", 42, "ace", score, NewDefaultBoard(), DefaultSessionConfig(), noSkull, nil, store)
}

func TestSettle(t *testing.T) {
	cases := []struct {
		score int
		m     float64
		want  int
	}{
		{500, 0.6, 300},
		{500, 3.8, 1900},
		{333, 2.2, 732},
		{999, 1.2, 1198},
		{500, 0, 0},
		{0, 7.6, 0},
		{1, 0.6, 0},
	}
	for _, tc := range cases {
		if got := settle(tc.score, tc.m); got != tc.want {
			t.Errorf("settle(%d, %v) = %d, want %d", tc.score, tc.m, got, tc.want)
		}
	}
}

func TestBuyBonus(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(500, store)

	score, err := s.buyBonus(t0)
	if err != nil || score != 200 {
		t.Fatalf("buyBonus = %d, %v", score, err)
	}
	if !s.bonusActive || !s.resolver.BonusActive() {
		t.Error("bonus should be active")
	}
	if store.scores[42] != 200 {
		t.Errorf("score not persisted: %v", store.scores)
	}
	if _, err := s.buyBonus(t0); !errors.Is(err, ErrBonusActive) {
		t.Errorf("second purchase: %v", err)
	}
}

func TestBuyBonusInsufficientScore(t *testing.T) {
	s := newTestSession(299, nil)
	score, err := s.buyBonus(t0)
	if !errors.Is(err, ErrInsufficientScore) || score != 299 {
		t.Errorf("got %d, %v", score, err)
	}
	if s.bonusActive {
		t.Error("bonus must stay off")
	}
}

func TestBuyDouble(t *testing.T) {
	s := newTestSession(1000, nil)

	score, err := s.buyDouble(t0)
	if err != nil || score != 500 {
		t.Fatalf("buyDouble = %d, %v", score, err)
	}
	if got := s.resolver.Slots()[0].Multiplier; got != 7.6 {
		t.Errorf("slot 0 = %v after doubling, want 7.6", got)
	}
	if _, err := s.buyDouble(t0); !errors.Is(err, ErrMultiplierUsed) {
		t.Errorf("second double: %v", err)
	}

	poor := newTestSession(499, nil)
	if _, err := poor.buyDouble(t0); !errors.Is(err, ErrInsufficientScore) {
		t.Errorf("expected insufficient score, got %v", err)
	}
}

func TestPurchasesRejectedAfterDrop(t *testing.T) {
	s := newTestSession(2000, nil)
	if _, err := s.drop(190, t0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.buyBonus(t0); !errors.Is(err, ErrBallDropped) {
		t.Errorf("bonus after drop: %v", err)
	}
	if _, err := s.buyDouble(t0); !errors.Is(err, ErrBallDropped) {
		t.Errorf("double after drop: %v", err)
	}
	if _, err := s.drop(190, t0); !errors.Is(err, ErrBallDropped) {
		t.Errorf("second drop: %v", err)
	}
	if err := s.move(170, t0); !errors.Is(err, ErrBallDropped) {
		t.Errorf("move after drop: %v", err)
	}
	if s.score != 2000 {
		t.Errorf("rejected purchases changed the score: %d", s.score)
	}
}

func TestLandingSettlesScore(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(1000, store)

	if _, err := s.buyDouble(t0); err != nil {
		t.Fatal(err)
	}
	if _, err := s.drop(250, t0); err != nil {
		t.Fatal(err)
	}
	if !s.resolver.OnSlotDetected(0) {
		t.Fatal("landing not accepted")
	}

	if s.score != 3800 {
		t.Errorf("score = %d, want 500*7.6 = 3800", s.score)
	}
	if s.multiplierUsed || s.bonusActive {
		t.Error("power-ups should be consumed by the landing")
	}
	if s.lastMultiplier != 7.6 {
		t.Errorf("last multiplier = %v", s.lastMultiplier)
	}
	if len(store.landings) != 1 {
		t.Fatalf("expected one recorded landing, got %d", len(store.landings))
	}
	rec := store.landings[0]
	if rec.ScoreBefore != 500 || rec.ScoreAfter != 3800 || !rec.Doubled || rec.Slot != 0 || rec.Nickname != "ace" {
		t.Errorf("unexpected record %+v", rec)
	}

	// a ball still resting in the slot does not score again
	if s.resolver.OnSlotDetected(0) {
		t.Error("second detection accepted")
	}
	if s.score != 3800 {
		t.Errorf("score changed on second detection: %d", s.score)
	}
}

func TestSkullLandingZeroesScore(t *testing.T) {
	s := NewSession("s1", 1, "ace", 500, NewDefaultBoard(), DefaultSessionConfig(), stubRNG{f: 0.1, i: 3}, nil, nil)
	if !s.resolver.Slots()[3].Skull {
		t.Fatal("expected a skull in slot 3")
	}
	s.drop(190, t0)
	s.resolver.OnSlotDetected(3)
	if s.score != 0 || s.lastMultiplier != 0 {
		t.Errorf("skull landing: score=%d multiplier=%v", s.score, s.lastMultiplier)
	}
}

func TestRestartClearsRound(t *testing.T) {
	s := newTestSession(2000, nil)
	s.buyBonus(t0)
	s.buyDouble(t0)
	s.drop(190, t0)

	s.restart(t0.Add(time.Second))

	if s.ballDropped || s.bonusActive || s.multiplierUsed {
		t.Errorf("flags not cleared: dropped=%v bonus=%v double=%v", s.ballDropped, s.bonusActive, s.multiplierUsed)
	}
	if s.resolver.BonusActive() {
		t.Error("resolver still in bonus mode")
	}
	if s.resolver.State() != RoundLaunching || s.resolver.PendingSpawns() != 0 {
		t.Errorf("state=%s pending=%d", s.resolver.State(), s.resolver.PendingSpawns())
	}
	if got := s.resolver.Table().Base()[0]; got != 3.8 {
		t.Errorf("table not restored: slot 0 base = %v", got)
	}
	if s.score != 1200 {
		t.Errorf("purchases are not refunded: score = %d", s.score)
	}
	if !s.lastActivity.Equal(t0.Add(time.Second)) {
		t.Errorf("restart should count as activity")
	}
}

func TestRestartLaysOutSlotsOnce(t *testing.T) {
	sink := make(chanSink, 64)
	s := NewSession("s1", 42, "ace", 1000, NewDefaultBoard(), DefaultSessionConfig(), noSkull, sink, nil)
	s.buyDouble(t0)
	for len(sink) > 0 {
		<-sink
	}

	s.restart(t0)

	layouts := 0
	for len(sink) > 0 {
		if ev := <-sink; ev.Type == EventSlots {
			layouts++
			slots := ev.Data.([]Slot)
			if slots[0].Multiplier != 3.8 {
				t.Errorf("new layout drawn before the table was halved: %v", slots[0].Multiplier)
			}
		}
	}
	if layouts != 1 {
		t.Errorf("restart published %d slot layouts, want 1", layouts)
	}
}

func TestSessionRunAndClose(t *testing.T) {
	sink := make(chanSink, 4096)
	store := newFakeStore()
	s := NewSession("s1", 7, "ace", 500, NewDefaultBoard(), DefaultSessionConfig(), NewSeededRNG(3), sink, store)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	x, err := s.Drop(ctx, 500)
	if err != nil {
		t.Fatal(err)
	}
	if x != 220 {
		t.Errorf("drop x = %v, want clamp to 220", x)
	}

	timeout := time.After(60 * time.Second)
	var landed LandingRecord
wait:
	for {
		select {
		case ev := <-sink:
			if ev.Type == EventLanded {
				landed = ev.Data.(LandingRecord)
				break wait
			}
		case <-timeout:
			t.Fatal("round never landed")
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Round != RoundLanded || snap.Score != landed.ScoreAfter {
		t.Errorf("snapshot %+v does not match landing %+v", snap, landed)
	}

	cancel()
	<-s.Done()
	if _, err := s.Snapshot(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.landings) != 1 {
		t.Errorf("expected one landing recorded, got %d", len(store.landings))
	}
}

func TestResetScore(t *testing.T) {
	s := newTestSession(90, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	score, err := s.ResetScore(ctx)
	if err != nil || score != DefaultSessionConfig().StartingScore {
		t.Errorf("ResetScore = %d, %v", score, err)
	}
}
