package game

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewResolverStartsLaunching(t *testing.T) {
	r, obs := newTestResolver(noSkull)

	if r.State() != RoundLaunching {
		t.Fatalf("expected LAUNCHING, got %s", r.State())
	}
	balls := r.Balls()
	if len(balls) != 1 || balls[0].Active {
		t.Fatalf("expected one inactive launch ball, got %+v", balls)
	}
	if balls[0].Position != NewVec2(190, 402) {
		t.Errorf("launch ball at %+v, want (190, 402)", balls[0].Position)
	}
	if len(r.Slots()) != SlotCount {
		t.Errorf("expected %d slots, got %d", SlotCount, len(r.Slots()))
	}
	if obs.slotChanges != 1 {
		t.Errorf("expected one SlotsChanged, got %d", obs.slotChanges)
	}
}

func TestRegenerateSlotsSkull(t *testing.T) {
	r, _ := newTestResolver(stubRNG{f: 0.4, i: 2})
	slots := r.Slots()

	for i, s := range slots {
		if i == 2 {
			if s.Multiplier != 0 || !s.Skull {
				t.Errorf("slot 2 should be a skull, got %+v", s)
			}
			if s.Color != (Color{Name: "white", Alpha: 0.3}) {
				t.Errorf("skull color = %+v", s.Color)
			}
			continue
		}
		if s.Skull || s.Multiplier != DefaultMultipliers[i] {
			t.Errorf("slot %d = %+v, want multiplier %v", i, s, DefaultMultipliers[i])
		}
	}
	if r.Table().Base()[2] != 1.2 {
		t.Error("skull must not change the base table")
	}

	r2, _ := newTestResolver(stubRNG{f: 0.5, i: 2})
	for _, s := range r2.Slots() {
		if s.Skull || s.Multiplier == 0 {
			t.Errorf("no skull expected when draw >= 0.5, got %+v", s)
		}
	}
}

func TestSkullRate(t *testing.T) {
	r, _ := newTestResolver(NewSeededRNG(7))
	skulls := 0
	const rounds = 4000
	for i := 0; i < rounds; i++ {
		for _, s := range r.RegenerateSlots() {
			if s.Skull {
				skulls++
			}
		}
	}
	rate := float64(skulls) / rounds
	if rate < 0.45 || rate > 0.55 {
		t.Errorf("skull rate %.3f, want about 0.5", rate)
	}
}

func TestDoubleThenHalveRestoresTable(t *testing.T) {
	r, _ := newTestResolver(noSkull)

	r.DoubleMultipliers()
	want := []float64{7.6, 4.4, 2.4, 1.6, 1.2, 1.6, 2.4, 4.4, 7.6}
	for i, m := range r.Table().Base() {
		if m != want[i] {
			t.Fatalf("doubled[%d] = %v, want %v", i, m, want[i])
		}
	}
	if got := r.Slots()[4].Color; got != (Color{Name: "blue", Alpha: 0.6}) {
		t.Errorf("doubled center slot color = %+v", got)
	}

	if !r.HalveMultipliers() {
		t.Fatal("halve after double should apply")
	}
	for i, m := range r.Table().Base() {
		if m != DefaultMultipliers[i] {
			t.Errorf("restored[%d] = %v, want %v", i, m, DefaultMultipliers[i])
		}
	}
}

func TestHalveAtFloorIsNoop(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	before := obs.slotChanges

	if r.HalveMultipliers() {
		t.Error("halving at the floor should report false")
	}
	for i, m := range r.Table().Base() {
		if m != DefaultMultipliers[i] {
			t.Errorf("table changed at %d: %v", i, m)
		}
	}
	if obs.slotChanges != before+1 {
		t.Error("slots should still be regenerated")
	}
}

func TestDetectSlotBoundaries(t *testing.T) {
	r, _ := newTestResolver(noSkull)

	cases := []struct {
		name string
		pos  Vec2
		want int
	}{
		{"slot 0 left edge", NewVec2(3, 20), 0},
		{"slot 0 right edge excluded", NewVec2(41, 20), -1},
		{"gap", NewVec2(43, 20), -1},
		{"slot 1 left edge", NewVec2(45, 20), 1},
		{"center", NewVec2(190, 20), 4},
		{"bottom edge", NewVec2(190, 10), 4},
		{"top edge excluded", NewVec2(190, 32), -1},
		{"above", NewVec2(190, 100), -1},
		{"last slot", NewVec2(376, 31), 8},
		{"NaN", NewVec2(math.NaN(), 20), -1},
		{"Inf", NewVec2(190, math.Inf(-1)), -1},
	}
	for _, tc := range cases {
		got, ok := r.DetectSlot(tc.pos)
		if tc.want < 0 {
			if ok {
				t.Errorf("%s: expected no slot, got %d", tc.name, got)
			}
			continue
		}
		if !ok || got != tc.want {
			t.Errorf("%s: got %d,%v want %d", tc.name, got, ok, tc.want)
		}
	}
}

func TestDropBallClampsToWindow(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 160},
		{1000, 220},
		{175.5, 175.5},
		{math.NaN(), 190},
		{math.Inf(1), 220},
	}
	for _, tc := range cases {
		r, obs := newTestResolver(noSkull)
		got, err := r.DropBall(tc.in, t0)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("DropBall(%v) = %v, want %v", tc.in, got, tc.want)
		}
		if r.State() != RoundFalling {
			t.Errorf("expected FALLING after drop, got %s", r.State())
		}
		b := r.Balls()[0]
		if !b.Active || b.Position.X != tc.want || b.Position.Y != r.Board().LaunchY() {
			t.Errorf("ball not released at drop point: %+v", b)
		}
		if len(obs.spawned) != 1 {
			t.Errorf("expected one BallSpawned, got %d", len(obs.spawned))
		}
	}
}

func TestDropBallTwiceIsRejected(t *testing.T) {
	r, _ := newTestResolver(noSkull)
	r.DropBall(190, t0)

	if _, err := r.DropBall(190, t0); !errors.Is(err, ErrRoundInProgress) {
		t.Errorf("expected ErrRoundInProgress, got %v", err)
	}
	if len(r.Balls()) != 1 {
		t.Errorf("second drop must not add balls")
	}
}

func TestMoveLaunchBall(t *testing.T) {
	r, _ := newTestResolver(noSkull)

	r.MoveLaunchBall(10)
	if x := r.Balls()[0].Position.X; x != 160 {
		t.Errorf("move should clamp to 160, got %v", x)
	}
	r.MoveLaunchBall(math.NaN())
	if x := r.Balls()[0].Position.X; x != 160 {
		t.Errorf("NaN move should be ignored, got %v", x)
	}

	r.DropBall(200, t0)
	r.MoveLaunchBall(170)
	if x := r.Balls()[0].Position.X; x != 200 {
		t.Errorf("move after drop should be ignored, got %v", x)
	}
}

func TestLandingReportsOnce(t *testing.T) {
	r, obs := newTestResolver(noSkull)

	if r.OnSlotDetected(3) {
		t.Fatal("detection while launching must be ignored")
	}
	r.DropBall(190, t0)
	if !r.OnSlotDetected(3) {
		t.Fatal("expected landing")
	}
	if r.OnSlotDetected(3) || r.OnSlotDetected(5) {
		t.Error("repeated detection must be ignored")
	}

	if len(obs.scored) != 1 || len(obs.landed) != 1 {
		t.Fatalf("expected exactly one Scored/Landed, got %d/%d", len(obs.scored), len(obs.landed))
	}
	if obs.scored[0] != (scoredEvent{3, 0.8}) {
		t.Errorf("scored = %+v", obs.scored[0])
	}
	slot, m, ok := r.Landing()
	if !ok || slot != 3 || m != 0.8 {
		t.Errorf("Landing() = %d, %v, %v", slot, m, ok)
	}
	if r.State() != RoundLanded {
		t.Errorf("expected LANDED, got %s", r.State())
	}
}

func TestSkullSlotScoresZero(t *testing.T) {
	r, obs := newTestResolver(stubRNG{f: 0.1, i: 4})
	r.DropBall(190, t0)
	r.OnSlotDetected(4)

	if obs.scored[0].multiplier != 0 {
		t.Errorf("skull should score 0, got %v", obs.scored[0].multiplier)
	}
}

func TestTickDetectsLanding(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.DropBall(190, t0)

	r.balls[0].Position = slotCenter(r.Board(), 6)
	r.Tick(t0.Add(16*time.Millisecond), nil, 0)

	if r.State() != RoundLanded || len(obs.landed) != 1 || obs.landed[0].slot != 6 {
		t.Errorf("expected landing in slot 6, state=%s landed=%+v", r.State(), obs.landed)
	}
}

func TestTickIgnoresSlotWhileLaunching(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.balls[0].Position = slotCenter(r.Board(), 2)
	r.Tick(t0, nil, 0)

	if len(obs.landed) != 0 || r.State() != RoundLaunching {
		t.Error("launching round must not land")
	}
}

func TestBonusDropStaggersSpawns(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.ActivateBonus()

	x, err := r.DropBall(190, t0)
	if err != nil || x != 190 {
		t.Fatalf("DropBall = %v, %v", x, err)
	}
	if len(r.Balls()) != 1 || r.PendingSpawns() != 2 {
		t.Fatalf("expected 1 ball and 2 pending, got %d and %d", len(r.Balls()), r.PendingSpawns())
	}

	r.Tick(t0.Add(50*time.Millisecond), nil, 0)
	if len(r.Balls()) != 1 {
		t.Errorf("second ball released early")
	}
	r.Tick(t0.Add(100*time.Millisecond), nil, 0)
	r.Tick(t0.Add(200*time.Millisecond), nil, 0)

	balls := r.Balls()
	if len(balls) != 3 || r.PendingSpawns() != 0 {
		t.Fatalf("expected 3 balls and none pending, got %d and %d", len(balls), r.PendingSpawns())
	}
	for i, b := range balls {
		if want := 190 + float64(i)*BonusBallSpacing; b.Position.X != want {
			t.Errorf("ball %d at x=%v, want %v", i, b.Position.X, want)
		}
		if !b.Active {
			t.Errorf("ball %d inactive", i)
		}
	}
	if len(obs.spawned) != 3 {
		t.Errorf("expected 3 BallSpawned, got %d", len(obs.spawned))
	}
}

func TestRestartCancelsPendingSpawns(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.ActivateBonus()
	r.DropBall(190, t0)

	r.Restart()
	r.Tick(t0.Add(time.Second), nil, 0)

	balls := r.Balls()
	if len(balls) != 1 || balls[0].Active {
		t.Fatalf("expected only a fresh launch ball, got %+v", balls)
	}
	if r.PendingSpawns() != 0 {
		t.Errorf("pending spawns survived restart")
	}
	if len(obs.spawned) != 1 {
		t.Errorf("spawns after restart: %d", len(obs.spawned))
	}
	if r.State() != RoundLaunching {
		t.Errorf("expected LAUNCHING, got %s", r.State())
	}
	if _, _, ok := r.Landing(); ok {
		t.Error("landing must be cleared on restart")
	}
}

func TestLandingStopsPendingSpawns(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.ActivateBonus()
	r.DropBall(190, t0)

	r.balls[0].Position = slotCenter(r.Board(), 4)
	r.Tick(t0.Add(10*time.Millisecond), nil, 0)
	r.Tick(t0.Add(500*time.Millisecond), nil, 0)

	if len(obs.spawned) != 1 || len(r.Balls()) != 1 {
		t.Errorf("no ball may spawn after landing, spawned=%d", len(obs.spawned))
	}
}

func TestFirstBallInSpawnOrderDecides(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	r.ActivateBonus()
	r.DropBall(190, t0)
	r.Tick(t0.Add(100*time.Millisecond), nil, 0)

	r.balls[0].Position = slotCenter(r.Board(), 1)
	r.balls[1].Position = slotCenter(r.Board(), 7)
	r.Tick(t0.Add(110*time.Millisecond), nil, 0)

	if len(obs.landed) != 1 || obs.landed[0].slot != 1 {
		t.Errorf("expected the first ball's slot 1, got %+v", obs.landed)
	}
}

func TestResetModifiers(t *testing.T) {
	r, _ := newTestResolver(noSkull)
	r.ActivateBonus()
	r.DoubleMultipliers()

	r.ResetModifiers()
	if r.BonusActive() {
		t.Error("bonus should be cleared")
	}
	if r.Table().Min() != FloorMultiplier {
		t.Errorf("table should be halved back, min=%v", r.Table().Min())
	}
}

func TestCenteringForce(t *testing.T) {
	r, _ := newTestResolver(noSkull)
	r.DropBall(160, t0)
	b := r.balls[0]
	b.Position.X = 100
	b.Force = Vec2{}

	r.ApplyCenteringForce()
	// coef = 0.02 + 0.5*(0.1-0.02) = 0.06
	if math.Abs(b.Force.X-90*0.06) > 1e-9 {
		t.Errorf("force = %v, want %v", b.Force.X, 90*0.06)
	}

	b.Position.X = 250
	b.Force = Vec2{}
	r.ApplyCenteringForce()
	if b.Force.X >= 0 {
		t.Errorf("ball right of center should be pushed left, got %v", b.Force.X)
	}
}

func TestCenteringForceBounds(t *testing.T) {
	r, _ := newTestResolver(NewSeededRNG(3))
	r.DropBall(160, t0)
	b := r.balls[0]
	for i := 0; i < 200; i++ {
		b.Position.X = 90
		b.Force = Vec2{}
		r.ApplyCenteringForce()
		if b.Force.X < 100*CenteringMin-1e-9 || b.Force.X > 100*CenteringMax+1e-9 {
			t.Fatalf("force %v outside [%v, %v]", b.Force.X, 100*CenteringMin, 100*CenteringMax)
		}
	}
}

func TestHandleContactFiltersPegBall(t *testing.T) {
	r, obs := newTestResolver(noSkull)
	id := r.Balls()[0].ID

	r.HandleContact(ContactEvent{BallID: id, TargetID: 5, CategoryA: CategoryBall, CategoryB: CategoryPeg})
	r.HandleContact(ContactEvent{BallID: id, TargetID: 6, CategoryA: CategoryPeg, CategoryB: CategoryBall})
	r.HandleContact(ContactEvent{BallID: id, TargetID: 1, CategoryA: CategoryBall, CategoryB: CategoryWall})
	r.HandleContact(ContactEvent{BallID: id, TargetID: 2, CategoryA: CategoryBall, CategoryB: CategoryBall})
	r.HandleContact(ContactEvent{BallID: id + 99, TargetID: 5, CategoryA: CategoryBall, CategoryB: CategoryPeg})

	if len(obs.pegHits) != 2 {
		t.Fatalf("expected 2 peg hits, got %+v", obs.pegHits)
	}
	if obs.pegHits[0] != [2]int{id, 5} || obs.pegHits[1] != [2]int{id, 6} {
		t.Errorf("unexpected peg hits %+v", obs.pegHits)
	}
}
