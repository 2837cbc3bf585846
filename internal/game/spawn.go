package game

import (
	"context"
	"time"
)

type pendingSpawn struct {
	at time.Time
	x  float64
}

// spawnSchedule holds the staggered bonus spawns of one drop. Spawns are
// released by the tick loop, never by timers, and the whole schedule is
// dropped once its context is cancelled.
type spawnSchedule struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pending []pendingSpawn
}

func newSpawnSchedule() *spawnSchedule {
	ctx, cancel := context.WithCancel(context.Background())
	return &spawnSchedule{ctx: ctx, cancel: cancel}
}

func (s *spawnSchedule) add(at time.Time, x float64) {
	s.pending = append(s.pending, pendingSpawn{at: at, x: x})
}

// due pops every spawn scheduled at or before now, in schedule order.
func (s *spawnSchedule) due(now time.Time) []pendingSpawn {
	if s == nil || s.ctx.Err() != nil {
		return nil
	}
	var out []pendingSpawn
	rest := s.pending[:0]
	for _, p := range s.pending {
		if !p.at.After(now) {
			out = append(out, p)
		} else {
			rest = append(rest, p)
		}
	}
	s.pending = rest
	return out
}

func (s *spawnSchedule) stop() {
	if s == nil {
		return
	}
	s.cancel()
	s.pending = nil
}

func (s *spawnSchedule) remaining() int {
	if s == nil || s.ctx.Err() != nil {
		return 0
	}
	return len(s.pending)
}
