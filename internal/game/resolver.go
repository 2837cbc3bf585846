package game

import (
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

var ErrRoundInProgress = errors.New("round already in progress")

// Ball is a ball owned by the resolver for the duration of one round.
type Ball struct {
	ID        int       `json:"id"`
	Position  Vec2      `json:"position"`
	Velocity  Vec2      `json:"velocity"`
	Force     Vec2      `json:"-"` // accumulated for the next physics step
	Active    bool      `json:"active"`
	SpawnedAt time.Time `json:"spawned_at"`
}

// RoundObserver receives the resolver's notifications. All calls happen on
// the goroutine driving the resolver.
type RoundObserver interface {
	SlotsChanged(slots []Slot)
	BallSpawned(ball Ball)
	PegHit(ballID, pegID int)
	Scored(slot int, multiplier float64)
	Landed(slot int, multiplier float64)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) SlotsChanged([]Slot) {}
func (NopObserver) BallSpawned(Ball) {}
func (NopObserver) PegHit(int, int) {}
func (NopObserver) Scored(int, float64) {}
func (NopObserver) Landed(int, float64) {}

// Simulator advances ball motion and reports contact-begin events.
type Simulator interface {
	Step(balls []*Ball, dt float64) []ContactEvent
}

// Resolver turns ball positions and contacts into scoring decisions for one
// board. It is not safe for concurrent use; a single goroutine owns it.
type Resolver struct {
	board *Board
	table *SlotTable
	rng   RandomSource
	obs   RoundObserver

	slots      []Slot
	state      RoundState
	bonus      bool
	balls      []*Ball
	nextBallID int
	spawns     *spawnSchedule

	landedSlot       int
	landedMultiplier float64
}

// NewResolver creates a resolver in the Launching state with a fresh slot layout.
func NewResolver(board *Board, table *SlotTable, rng RandomSource, obs RoundObserver) *Resolver {
	if rng == nil {
		rng = DefaultRNG()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	r := &Resolver{
		board:      board,
		table:      table,
		rng:        rng,
		obs:        obs,
		landedSlot: -1,
	}
	r.resetBalls()
	r.RegenerateSlots()
	return r
}

func (r *Resolver) State() RoundState { return r.state }

func (r *Resolver) BonusActive() bool { return r.bonus }

func (r *Resolver) Table() *SlotTable { return r.table }

func (r *Resolver) Board() *Board { return r.board }

// Slots returns the current round layout.
func (r *Resolver) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

// Balls returns copies of the balls in spawn order.
func (r *Resolver) Balls() []Ball {
	out := make([]Ball, 0, len(r.balls))
	for _, b := range r.balls {
		out = append(out, *b)
	}
	return out
}

// PendingSpawns is the number of bonus balls still waiting to drop.
func (r *Resolver) PendingSpawns() int {
	return r.spawns.remaining()
}

// Landing returns the slot and multiplier of the finished round, ok=false
// while the round has not landed.
func (r *Resolver) Landing() (slot int, multiplier float64, ok bool) {
	if r.state != RoundLanded {
		return -1, 0, false
	}
	return r.landedSlot, r.landedMultiplier, true
}

// RegenerateSlots lays out the slot row for a new round. Half of the time a
// single random slot becomes a skull worth zero; the base table is unchanged.
func (r *Resolver) RegenerateSlots() []Slot {
	round, skull := r.table.Regenerate(r.rng)
	min := r.table.Min()
	slots := make([]Slot, len(round))
	for i, m := range round {
		var rect Rect
		if i < len(r.board.SlotRects) {
			rect = r.board.SlotRects[i]
		}
		slots[i] = Slot{
			Index:      i,
			Rect:       rect,
			Multiplier: m,
			Skull:      i == skull,
			Color:      SlotColor(min, m),
		}
	}
	r.slots = slots
	r.obs.SlotsChanged(r.Slots())
	return r.Slots()
}

// DoubleMultipliers doubles the base table and lays out a new round.
func (r *Resolver) DoubleMultipliers() {
	r.table.Double()
	zap.S().Debugf("[ROUND] multipliers doubled: %v", r.table.Base())
	r.RegenerateSlots()
}

// HalveMultipliers halves the base table unless it already sits at the
// floor, then lays out a new round either way.
func (r *Resolver) HalveMultipliers() bool {
	halved := r.table.Halve()
	r.RegenerateSlots()
	return halved
}

func (r *Resolver) ActivateBonus() { r.bonus = true }

func (r *Resolver) DeactivateBonus() { r.bonus = false }

// ResetModifiers undoes one power-up cycle: halve the table and leave bonus mode.
func (r *Resolver) ResetModifiers() {
	r.bonus = false
	r.HalveMultipliers()
}

// DetectSlot returns the first slot, left to right, whose rectangle holds pos.
func (r *Resolver) DetectSlot(pos Vec2) (int, bool) {
	if !pos.IsFinite() {
		return -1, false
	}
	for _, s := range r.slots {
		if s.Rect.Contains(pos) {
			return s.Index, true
		}
	}
	return -1, false
}

// OnSlotDetected ends a falling round in slot index and reports the round's
// multiplier for it. Calls outside the Falling state are ignored, so a ball
// resting in a slot scores exactly once.
func (r *Resolver) OnSlotDetected(index int) bool {
	if r.state != RoundFalling || index < 0 || index >= len(r.slots) {
		return false
	}
	r.state = RoundLanded
	r.landedSlot = index
	r.landedMultiplier = r.slots[index].Multiplier
	r.spawns.stop()

	r.obs.Scored(index, r.landedMultiplier)
	r.obs.Landed(index, r.landedMultiplier)
	return true
}

// MoveLaunchBall moves the waiting ball while the player aims.
func (r *Resolver) MoveLaunchBall(x float64) {
	if r.state != RoundLaunching || math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	if b := r.launchBall(); b != nil {
		b.Position.X = x
		r.ApplyCenteringForce()
	}
}

// DropBall releases the round. The requested x is clamped into the drop
// window; the returned x is where the (first) ball drops. In bonus mode the
// launch ball is replaced by BonusBallCount balls released BonusSpawnDelay
// apart, each offset BonusBallSpacing further right.
func (r *Resolver) DropBall(requestedX float64, now time.Time) (float64, error) {
	if r.state != RoundLaunching {
		return 0, ErrRoundInProgress
	}
	if math.IsNaN(requestedX) {
		requestedX = r.board.CenterX()
	}
	x := r.board.ClampDropX(requestedX)

	if r.bonus {
		r.balls = nil
		r.spawns.stop()
		r.spawns = newSpawnSchedule()
		for i := 0; i < BonusBallCount; i++ {
			r.spawns.add(now.Add(time.Duration(i)*BonusSpawnDelay), x+float64(i)*BonusBallSpacing)
		}
		r.spawnDue(now)
	} else if b := r.launchBall(); b != nil {
		b.Position = NewVec2(x, r.board.LaunchY())
		b.Velocity = Vec2{}
		b.Active = true
		b.SpawnedAt = now
		r.obs.BallSpawned(*b)
	}

	r.state = RoundFalling
	r.ApplyCenteringForce()
	zap.S().Debugf("[ROUND] ball dropped at x=%.2f (requested %.2f, bonus=%v)", x, requestedX, r.bonus)
	return x, nil
}

// Restart discards the round: pending bonus spawns are cancelled, balls
// removed, a new launch ball placed at the center and a new layout drawn.
func (r *Resolver) Restart() {
	r.spawns.stop()
	r.spawns = nil
	r.resetBalls()
	r.state = RoundLaunching
	r.landedSlot = -1
	r.landedMultiplier = 0
	r.RegenerateSlots()
}

// ApplyCenteringForce holds the launch ball inside the drop window before
// the drop, and nudges falling balls toward the center by a random fraction
// of their distance from it afterwards.
func (r *Resolver) ApplyCenteringForce() {
	switch r.state {
	case RoundLaunching:
		if b := r.launchBall(); b != nil {
			b.Position.X = r.board.ClampDropX(b.Position.X)
		}
	case RoundFalling:
		cx := r.board.CenterX()
		for _, b := range r.balls {
			if b == nil || !b.Active {
				continue
			}
			coef := uniform(r.rng, CenteringMin, CenteringMax)
			b.Force.X += (cx - b.Position.X) * coef
		}
	}
}

// HandleContact reacts to a contact-begin event. Only peg/ball pairs with a
// known ball are reported; everything else is ignored.
func (r *Resolver) HandleContact(ev ContactEvent) {
	if !ev.isPegBall() {
		return
	}
	if r.findBall(ev.BallID) == nil {
		return
	}
	r.obs.PegHit(ev.BallID, ev.TargetID)
}

// Tick runs one frame: release due bonus balls, apply the centering force,
// let sim move the balls, then look for a landing. The first active ball (in
// spawn order) found inside a slot decides the round.
func (r *Resolver) Tick(now time.Time, sim Simulator, dt float64) {
	r.spawnDue(now)
	r.ApplyCenteringForce()

	if sim != nil && r.state != RoundLaunching {
		for _, ev := range sim.Step(r.balls, dt) {
			r.HandleContact(ev)
		}
	}

	if r.state != RoundFalling {
		return
	}
	for _, b := range r.balls {
		if b == nil || !b.Active {
			continue
		}
		if idx, ok := r.DetectSlot(b.Position); ok {
			r.OnSlotDetected(idx)
			return
		}
	}
}

func (r *Resolver) spawnDue(now time.Time) {
	if r.state == RoundLanded {
		return
	}
	for _, p := range r.spawns.due(now) {
		b := r.newBall(NewVec2(p.x, r.board.LaunchY()))
		b.Active = true
		b.SpawnedAt = p.at
		r.balls = append(r.balls, b)
		r.obs.BallSpawned(*b)
	}
}

func (r *Resolver) resetBalls() {
	r.balls = []*Ball{r.newBall(NewVec2(r.board.CenterX(), r.board.LaunchY()))}
}

func (r *Resolver) newBall(pos Vec2) *Ball {
	b := &Ball{ID: r.nextBallID, Position: pos}
	r.nextBallID++
	return b
}

func (r *Resolver) launchBall() *Ball {
	if len(r.balls) == 0 {
		return nil
	}
	return r.balls[0]
}

func (r *Resolver) findBall(id int) *Ball {
	for _, b := range r.balls {
		if b != nil && b.ID == id {
			return b
		}
	}
	return nil
}
