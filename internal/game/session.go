package game

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInsufficientScore = errors.New("insufficient score")
	ErrBonusActive       = errors.New("bonus already active")
	ErrMultiplierUsed    = errors.New("multiplier already used this round")
	ErrBallDropped       = errors.New("ball already dropped")
	ErrSessionClosed     = errors.New("session closed")
)

// Event types streamed to clients.
const (
	EventSlots       = "slots"
	EventBallSpawned = "ball_spawned"
	EventTick        = "tick"
	EventPegHit      = "peg_hit"
	EventScored      = "scored"
	EventLanded      = "landed"
	EventState       = "state"
)

// Event is one frame of a session's event stream.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data"`
}

// EventSink delivers session events to connected clients.
type EventSink interface {
	Publish(sessionID string, ev Event)
}

// LandingRecord is everything persisted when a round lands.
type LandingRecord struct {
	SessionID   string    `json:"session_id"`
	PlayerID    int       `json:"player_id"`
	Nickname    string    `json:"nickname"`
	Slot        int       `json:"slot"`
	Multiplier  float64   `json:"multiplier"`
	ScoreBefore int       `json:"score_before"`
	ScoreAfter  int       `json:"score_after"`
	Bonus       bool      `json:"bonus"`
	Doubled     bool      `json:"doubled"`
	LandedAt    time.Time `json:"landed_at"`
}

// SessionStore persists what a session produces. Implementations must not
// call back into the session.
type SessionStore interface {
	SaveScore(ctx context.Context, playerID, score int) error
	RecordLanding(ctx context.Context, rec LandingRecord) error
	Touch(ctx context.Context, snap Snapshot) error
}

// SessionConfig holds the economy and pacing of a session.
type SessionConfig struct {
	StartingScore  int
	BonusCost      int
	MultiplierCost int
	TickRate       int // Hz
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{StartingScore: 500, BonusCost: 300, MultiplierCost: 500, TickRate: 60}
}

// BallFrame is a ball position in a tick frame.
type BallFrame struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID              string        `json:"id"`
	PlayerID        int           `json:"player_id"`
	Nickname        string        `json:"nickname"`
	Status          SessionStatus `json:"status"`
	Score           int           `json:"score"`
	BonusActive     bool          `json:"bonus_active"`
	MultiplierUsed  bool          `json:"multiplier_used"`
	BallDropped     bool          `json:"ball_dropped"`
	LastMultiplier  float64       `json:"last_multiplier"`
	Round           RoundState    `json:"round"`
	Slots           []Slot        `json:"slots"`
	Balls           []Ball        `json:"balls"`
	BaseMultipliers []float64     `json:"base_multipliers"`
	PendingSpawns   int           `json:"pending_spawns"`
	CreatedAt       time.Time     `json:"created_at"`
	LastActivity    time.Time     `json:"last_activity"`
}

type command struct {
	fn    func(now time.Time) (any, error)
	reply chan commandResult
}

type commandResult struct {
	val any
	err error
}

// Session is one player's game. All state is owned by the goroutine running
// Run; exported methods hand work to it and wait for the result.
type Session struct {
	ID       string
	PlayerID int
	Nickname string

	cfg      SessionConfig
	resolver *Resolver
	engine   *PhysicsEngine
	sink     EventSink
	store    SessionStore
	clock    func() time.Time

	status         SessionStatus
	score          int
	bonusActive    bool
	multiplierUsed bool
	ballDropped    bool
	lastMultiplier float64
	createdAt      time.Time
	lastActivity   time.Time

	cmds chan command
	done chan struct{}
}

// NewSession builds a session around a fresh resolver for board. sink and
// store may be nil.
func NewSession(id string, playerID int, nickname string, score int, board *Board, cfg SessionConfig, rng RandomSource, sink EventSink, store SessionStore) *Session {
	if rng == nil {
		rng = DefaultRNG()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	now := time.Now()
	s := &Session{
		ID:             id,
		PlayerID:       playerID,
		Nickname:       nickname,
		cfg:            cfg,
		engine:         NewPhysicsEngine(board, rng),
		sink:           sink,
		store:          store,
		clock:          time.Now,
		status:         StatusActive,
		score:          score,
		lastMultiplier: 1,
		createdAt:      now,
		lastActivity:   now,
		cmds:           make(chan command),
		done:           make(chan struct{}),
	}
	table := NewSlotTable(board.Config.Multipliers, board.Config.FloorMultiplier)
	s.resolver = NewResolver(board, table, rng, s)
	return s
}

// Run drives the session until ctx is cancelled. The physics ticker only
// runs while balls are falling.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	// publish the initial snapshot so other instances can find the session
	s.touch(s.clock())

	interval := time.Second / time.Duration(s.cfg.TickRate)
	var ticker *time.Ticker
	var tickC <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.status = StatusClosed
			return
		case cmd := <-s.cmds:
			val, err := cmd.fn(s.clock())
			cmd.reply <- commandResult{val: val, err: err}
		case now := <-tickC:
			s.advance(now)
		}

		falling := s.resolver.State() == RoundFalling
		if falling && ticker == nil {
			ticker = time.NewTicker(interval)
			tickC = ticker.C
		} else if !falling && ticker != nil {
			ticker.Stop()
			ticker, tickC = nil, nil
		}
	}
}

// Done is closed once Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) do(ctx context.Context, fn func(now time.Time) (any, error)) (any, error) {
	cmd := command{fn: fn, reply: make(chan commandResult, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res.val, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Drop releases the ball at x and returns the clamped drop position.
func (s *Session) Drop(ctx context.Context, x float64) (float64, error) {
	v, err := s.do(ctx, func(now time.Time) (any, error) { return s.drop(x, now) })
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Move aims the launch ball before the drop.
func (s *Session) Move(ctx context.Context, x float64) error {
	_, err := s.do(ctx, func(now time.Time) (any, error) { return nil, s.move(x, now) })
	return err
}

// Restart starts a new round and undoes the round's power-ups.
func (s *Session) Restart(ctx context.Context) error {
	_, err := s.do(ctx, func(now time.Time) (any, error) {
		s.restart(now)
		return nil, nil
	})
	return err
}

// BuyBonus spends BonusCost for a three-ball drop; returns the new score.
func (s *Session) BuyBonus(ctx context.Context) (int, error) {
	v, err := s.do(ctx, func(now time.Time) (any, error) { return s.buyBonus(now) })
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// BuyDouble spends MultiplierCost to double the slot table; returns the new score.
func (s *Session) BuyDouble(ctx context.Context) (int, error) {
	v, err := s.do(ctx, func(now time.Time) (any, error) { return s.buyDouble(now) })
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// ResetScore puts the score back to the starting value.
func (s *Session) ResetScore(ctx context.Context) (int, error) {
	v, err := s.do(ctx, func(now time.Time) (any, error) {
		s.score = s.cfg.StartingScore
		s.touch(now)
		s.publish(EventState, s.snapshot())
		return s.score, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	v, err := s.do(ctx, func(time.Time) (any, error) { return s.snapshot(), nil })
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (s *Session) drop(x float64, now time.Time) (float64, error) {
	if s.ballDropped {
		return 0, ErrBallDropped
	}
	dropX, err := s.resolver.DropBall(x, now)
	if err != nil {
		return 0, err
	}
	s.ballDropped = true
	s.touch(now)
	return dropX, nil
}

func (s *Session) move(x float64, now time.Time) error {
	if s.ballDropped {
		return ErrBallDropped
	}
	s.resolver.MoveLaunchBall(x)
	s.lastActivity = now
	return nil
}

func (s *Session) restart(now time.Time) {
	// undo the power-ups before Restart so the new layout is drawn once
	s.resolver.DeactivateBonus()
	s.resolver.Table().Halve()
	s.resolver.Restart()
	s.engine.Reset()
	s.ballDropped = false
	s.bonusActive = false
	s.multiplierUsed = false
	s.lastMultiplier = 1
	s.touch(now)
	s.publish(EventState, s.snapshot())
}

func (s *Session) buyBonus(now time.Time) (int, error) {
	switch {
	case s.ballDropped:
		return s.score, ErrBallDropped
	case s.bonusActive:
		return s.score, ErrBonusActive
	case s.score < s.cfg.BonusCost:
		return s.score, ErrInsufficientScore
	}
	s.score -= s.cfg.BonusCost
	s.bonusActive = true
	s.resolver.ActivateBonus()
	s.saveScore()
	s.touch(now)
	s.publish(EventState, s.snapshot())
	return s.score, nil
}

func (s *Session) buyDouble(now time.Time) (int, error) {
	switch {
	case s.ballDropped:
		return s.score, ErrBallDropped
	case s.multiplierUsed:
		return s.score, ErrMultiplierUsed
	case s.score < s.cfg.MultiplierCost:
		return s.score, ErrInsufficientScore
	}
	s.score -= s.cfg.MultiplierCost
	s.multiplierUsed = true
	s.resolver.DoubleMultipliers()
	s.saveScore()
	s.touch(now)
	s.publish(EventState, s.snapshot())
	return s.score, nil
}

// advance runs one physics frame and streams the ball positions.
func (s *Session) advance(now time.Time) {
	dt := 1.0 / float64(s.cfg.TickRate)
	s.resolver.Tick(now, s.engine, dt)

	balls := s.resolver.Balls()
	frame := make([]BallFrame, 0, len(balls))
	for _, b := range balls {
		if b.Active {
			frame = append(frame, BallFrame{ID: b.ID, Position: b.Position})
		}
	}
	s.publish(EventTick, frame)
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:              s.ID,
		PlayerID:        s.PlayerID,
		Nickname:        s.Nickname,
		Status:          s.status,
		Score:           s.score,
		BonusActive:     s.bonusActive,
		MultiplierUsed:  s.multiplierUsed,
		BallDropped:     s.ballDropped,
		LastMultiplier:  s.lastMultiplier,
		Round:           s.resolver.State(),
		Slots:           s.resolver.Slots(),
		Balls:           s.resolver.Balls(),
		BaseMultipliers: s.resolver.Table().Base(),
		PendingSpawns:   s.resolver.PendingSpawns(),
		CreatedAt:       s.createdAt,
		LastActivity:    s.lastActivity,
	}
}

// settle applies a landing multiplier to score, rounding down.
func settle(score int, multiplier float64) int {
	return int(decimal.NewFromInt(int64(score)).Mul(decimal.NewFromFloat(multiplier)).Floor().IntPart())
}

// RoundObserver

func (s *Session) SlotsChanged(slots []Slot) {
	s.publish(EventSlots, slots)
}

func (s *Session) BallSpawned(b Ball) {
	s.publish(EventBallSpawned, b)
}

func (s *Session) PegHit(ballID, pegID int) {
	s.publish(EventPegHit, map[string]int{"ball_id": ballID, "peg_id": pegID})
}

func (s *Session) Scored(slot int, multiplier float64) {
	s.lastMultiplier = multiplier
	s.publish(EventScored, map[string]any{"slot": slot, "multiplier": multiplier})
}

func (s *Session) Landed(slot int, multiplier float64) {
	now := s.clock()
	rec := LandingRecord{
		SessionID:   s.ID,
		PlayerID:    s.PlayerID,
		Nickname:    s.Nickname,
		Slot:        slot,
		Multiplier:  multiplier,
		ScoreBefore: s.score,
		Bonus:       s.bonusActive,
		Doubled:     s.multiplierUsed,
		LandedAt:    now,
	}
	s.score = settle(s.score, multiplier)
	rec.ScoreAfter = s.score
	s.bonusActive = false
	s.multiplierUsed = false

	zap.S().Infof("[SESSION] %s landed in slot %d x%v: score %d -> %d", s.ID, slot, multiplier, rec.ScoreBefore, rec.ScoreAfter)
	s.publish(EventLanded, rec)

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.store.RecordLanding(ctx, rec); err != nil {
			zap.S().Warnf("[SESSION] %s failed to record landing: %v", s.ID, err)
		}
	}
	s.touch(now)
}

func (s *Session) publish(typ string, data any) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(s.ID, Event{Type: typ, SessionID: s.ID, Data: data})
}

func (s *Session) saveScore() {
	if s.store == nil || s.PlayerID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.SaveScore(ctx, s.PlayerID, s.score); err != nil {
		zap.S().Warnf("[SESSION] %s failed to save score: %v", s.ID, err)
	}
}

func (s *Session) touch(now time.Time) {
	s.lastActivity = now
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.store.Touch(ctx, s.snapshot()); err != nil {
		zap.S().Debugf("[SESSION] %s touch failed: %v", s.ID, err)
	}
}
