package game

import "math"

// ContactEvent is a contact-begin notification between a ball and another body.
type ContactEvent struct {
	BallID    int     `json:"ball_id"`
	TargetID  int     `json:"target_id"` // peg ID, other ball ID, or wall index (-1 for board edges)
	CategoryA uint32  `json:"category_a"`
	CategoryB uint32  `json:"category_b"`
	Speed     float64 `json:"speed"` // normal impact speed
}

func (e ContactEvent) isPegBall() bool {
	return (e.CategoryA == CategoryPeg && e.CategoryB == CategoryBall) ||
		(e.CategoryA == CategoryBall && e.CategoryB == CategoryPeg)
}

type contactKey struct {
	ball     int
	category uint32
	target   int
}

// PhysicsEngine moves balls through the peg field. It stands in for the
// client's physics engine so the server can run rounds authoritatively.
type PhysicsEngine struct {
	board    *Board
	rng      RandomSource
	touching map[contactKey]bool
}

// NewPhysicsEngine creates an engine for board.
func NewPhysicsEngine(board *Board, rng RandomSource) *PhysicsEngine {
	if rng == nil {
		rng = DefaultRNG()
	}
	return &PhysicsEngine{
		board:    board,
		rng:      rng,
		touching: make(map[contactKey]bool),
	}
}

// Step advances active balls by dt seconds in fixed sub-steps, resolves
// collisions and returns the contacts that began during the step.
// Accumulated forces are consumed.
func (pe *PhysicsEngine) Step(balls []*Ball, dt float64) []ContactEvent {
	if dt <= 0 {
		return nil
	}
	n := int(math.Ceil(dt / PhysicsSubstep))
	h := dt / float64(n)

	var events []ContactEvent
	current := make(map[contactKey]bool)
	for i := 0; i < n; i++ {
		pe.integrate(balls, h)
		events = pe.collide(balls, current, events)
	}

	for _, b := range balls {
		if b != nil {
			b.Force = Vec2{}
		}
	}
	pe.touching = current
	return events
}

// Reset forgets contact history, used when a round restarts.
func (pe *PhysicsEngine) Reset() {
	pe.touching = make(map[contactKey]bool)
}

func (pe *PhysicsEngine) integrate(balls []*Ball, h float64) {
	for _, b := range balls {
		if b == nil || !b.Active {
			continue
		}
		acc := NewVec2(b.Force.X, Gravity+b.Force.Y)
		b.Velocity = b.Velocity.Plus(acc.Times(h)).Times(1 - LinearDamping*h)
		if speed := b.Velocity.Magnitude(); speed > MaxBallSpeed {
			b.Velocity = b.Velocity.Times(MaxBallSpeed / speed)
		}
		b.Position = b.Position.Plus(b.Velocity.Times(h))
	}
}

func (pe *PhysicsEngine) collide(balls []*Ball, current map[contactKey]bool, events []ContactEvent) []ContactEvent {
	cfg := pe.board.Config
	r := cfg.BallRadius

	for i, b := range balls {
		if b == nil || !b.Active {
			continue
		}

		// Ball-peg
		minDist := r + cfg.PegRadius
		for _, peg := range pe.board.Pegs {
			if math.Abs(b.Position.X-peg.Position.X) > minDist || math.Abs(b.Position.Y-peg.Position.Y) > minDist {
				continue
			}
			d := b.Position.Distance(peg.Position)
			if d >= minDist {
				continue
			}
			normal := b.Position.Minus(peg.Position).Normalize()
			if normal.IsZero() {
				normal = NewVec2(0, 1)
			}
			b.Position = peg.Position.Plus(normal.Times(minDist))
			speed := pe.bounce(b, normal, PegRestitution, PegFriction)
			events = pe.record(current, events, contactKey{b.ID, CategoryPeg, peg.ID}, ContactEvent{
				BallID: b.ID, TargetID: peg.ID, CategoryA: CategoryBall, CategoryB: CategoryPeg, Speed: speed,
			})
		}

		// Ball-ball
		for _, o := range balls[i+1:] {
			if o == nil || !o.Active {
				continue
			}
			d := b.Position.Distance(o.Position)
			if d >= 2*r {
				continue
			}
			normal := b.Position.Minus(o.Position).Normalize()
			if normal.IsZero() {
				normal = NewVec2(1, 0)
			}
			overlap := 2*r - d
			b.Position = b.Position.Plus(normal.Times(overlap / 2))
			o.Position = o.Position.Minus(normal.Times(overlap / 2))

			rel := b.Velocity.Minus(o.Velocity).Dot(normal)
			if rel < 0 {
				impulse := normal.Times(-(1 + BallRestitution) * rel / 2)
				b.Velocity = b.Velocity.Plus(impulse)
				o.Velocity = o.Velocity.Minus(impulse)
			}
			events = pe.record(current, events, contactKey{b.ID, CategoryBall, o.ID}, ContactEvent{
				BallID: b.ID, TargetID: o.ID, CategoryA: CategoryBall, CategoryB: CategoryBall, Speed: math.Abs(rel),
			})
		}

		// Slot walls
		for wi, w := range pe.board.Walls {
			closest := NewVec2(clamp(b.Position.X, w.X, w.X+w.W), clamp(b.Position.Y, w.Y, w.Y+w.H))
			delta := b.Position.Minus(closest)
			d := delta.Magnitude()
			if d >= r {
				continue
			}
			normal := delta.Normalize()
			if normal.IsZero() {
				// center inside the wall, push out through the top
				normal = NewVec2(0, 1)
				closest = NewVec2(b.Position.X, w.Y+w.H)
			}
			b.Position = closest.Plus(normal.Times(r))
			speed := pe.bounce(b, normal, WallRestitution, 0)
			events = pe.record(current, events, contactKey{b.ID, CategoryWall, wi}, ContactEvent{
				BallID: b.ID, TargetID: wi, CategoryA: CategoryBall, CategoryB: CategoryWall, Speed: speed,
			})
		}

		// Board edges
		edge := func(normal Vec2) {
			speed := pe.bounce(b, normal, WallRestitution, 0)
			events = pe.record(current, events, contactKey{b.ID, CategoryWall, -1}, ContactEvent{
				BallID: b.ID, TargetID: -1, CategoryA: CategoryBall, CategoryB: CategoryWall, Speed: speed,
			})
		}
		if b.Position.X < r {
			b.Position.X = r
			edge(NewVec2(1, 0))
		} else if b.Position.X > cfg.Width-r {
			b.Position.X = cfg.Width - r
			edge(NewVec2(-1, 0))
		}
		if b.Position.Y < r {
			b.Position.Y = r
			edge(NewVec2(0, 1))
		} else if b.Position.Y > cfg.Height-r {
			b.Position.Y = cfg.Height - r
			edge(NewVec2(0, -1))
		}
	}
	return events
}

// bounce reflects the normal component of the ball's velocity and damps the
// tangential one. A ball hitting a surface almost dead-center gets a small
// random sideways kick so it cannot balance on top of a peg or wall.
// Returns the normal impact speed.
func (pe *PhysicsEngine) bounce(b *Ball, normal Vec2, restitution, friction float64) float64 {
	vn := b.Velocity.Dot(normal)
	if vn >= 0 {
		return 0
	}
	tangent := normal.RightNormal()
	vt := b.Velocity.Dot(tangent) * (1 - friction*0.1)
	if normal.Y > 0.98 && math.Abs(vt) < 1 {
		kick := uniform(pe.rng, 5, 15)
		if pe.rng.Float64() < 0.5 {
			kick = -kick
		}
		vt += kick
	}
	b.Velocity = normal.Times(-vn * restitution).Plus(tangent.Times(vt))
	return -vn
}

func (pe *PhysicsEngine) record(current map[contactKey]bool, events []ContactEvent, key contactKey, ev ContactEvent) []ContactEvent {
	if current[key] {
		return events
	}
	current[key] = true
	if pe.touching[key] {
		return events
	}
	return append(events, ev)
}
