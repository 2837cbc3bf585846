package game

import "time"

// Board geometry and physics tuning. These match the proportions the mobile
// client renders, so positions streamed over the websocket can be drawn as-is.
const (
	BoardWidth      = 380.0
	BoardHeight     = 432.0
	BallRadius      = 10.0
	PegRadius       = 4.0
	PegRows         = 8
	PegsFirstRow    = 3
	PegsLastRow     = 10
	PegSpacing      = 40.0
	PegTopRatio     = 0.8 // first peg row sits at 80% of the board height
	SlotCount       = 9
	SlotWidth       = 38.0
	SlotHeight      = 22.0
	SlotGap         = 4.0
	SlotBaseY       = 10.0
	SlotWallWidth   = 2.0
	LaunchOffsetY   = 30.0 // launch height is BoardHeight - LaunchOffsetY
	HorizontalLimit = 30.0

	Gravity         = -900.0
	LinearDamping   = 0.1
	PegRestitution  = 0.5
	PegFriction     = 0.3
	WallRestitution = 0.4
	BallRestitution = 0.6
	PhysicsSubstep  = 1.0 / 120.0
	MaxBallSpeed    = 1200.0

	// Centering force coefficient range, drawn uniformly every tick.
	CenteringMin = 0.02
	CenteringMax = 0.1

	BonusBallCount   = 3
	BonusBallSpacing = 5.0
	BonusSpawnDelay  = 100 * time.Millisecond

	// FloorMultiplier is the smallest base multiplier; halving stops here.
	FloorMultiplier = 0.6
	// SecondTierMultiplier is the minimum of the table after one doubling.
	SecondTierMultiplier = 1.2
)

// Collision categories reported with contact events.
const (
	CategoryPeg  uint32 = 1
	CategoryBall uint32 = 2
	CategoryWall uint32 = 4
)

// DefaultMultipliers is the base slot table, symmetric with the lowest value in the middle.
var DefaultMultipliers = []float64{3.8, 2.2, 1.2, 0.8, 0.6, 0.8, 1.2, 2.2, 3.8}
