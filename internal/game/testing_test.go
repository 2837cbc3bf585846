package game

import "time"

// stubRNG returns the same draw every time.
type stubRNG struct {
	f float64
	i int
}

func (s stubRNG) Float64() float64 { return s.f }

func (s stubRNG) IntN(n int) int {
	if s.i >= n {
		return n - 1
	}
	return s.i
}

// noSkull never produces a skull slot and picks the middle of every range.
var noSkull = stubRNG{f: 0.5}

type scoredEvent struct {
	slot       int
	multiplier float64
}

type recordingObserver struct {
	slotChanges int
	spawned     []Ball
	pegHits     [][2]int
	scored      []scoredEvent
	landed      []scoredEvent
}

func (o *recordingObserver) SlotsChanged([]Slot) { o.slotChanges++ }

func (o *recordingObserver) BallSpawned(b Ball) { o.spawned = append(o.spawned, b) }

func (o *recordingObserver) PegHit(ballID, pegID int) {
	o.pegHits = append(o.pegHits, [2]int{ballID, pegID})
}

func (o *recordingObserver) Scored(slot int, m float64) {
	o.scored = append(o.scored, scoredEvent{slot, m})
}

func (o *recordingObserver) Landed(slot int, m float64) {
	o.landed = append(o.landed, scoredEvent{slot, m})
}

func newTestResolver(rng RandomSource) (*Resolver, *recordingObserver) {
	board := NewDefaultBoard()
	obs := &recordingObserver{}
	table := NewSlotTable(board.Config.Multipliers, board.Config.FloorMultiplier)
	return NewResolver(board, table, rng, obs), obs
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// slotCenter is a point well inside slot i of the default board.
func slotCenter(b *Board, i int) Vec2 {
	r := b.SlotRects[i]
	return NewVec2(r.X+r.W/2, r.Y+r.H/2)
}
