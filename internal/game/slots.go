package game

import "slices"

// SlotTable holds the base multipliers. Rounds never mutate it directly:
// each round works on a copy produced by Regenerate.
type SlotTable struct {
	base  []float64
	floor float64
}

// NewSlotTable copies multipliers into a new table. floor is the value at
// which halving stops.
func NewSlotTable(multipliers []float64, floor float64) *SlotTable {
	return &SlotTable{base: slices.Clone(multipliers), floor: floor}
}

// Base returns a copy of the base multipliers.
func (t *SlotTable) Base() []float64 {
	return slices.Clone(t.base)
}

func (t *SlotTable) Len() int {
	return len(t.base)
}

// Min is the smallest base multiplier, 0 for an empty table.
func (t *SlotTable) Min() float64 {
	if len(t.base) == 0 {
		return 0
	}
	return slices.Min(t.base)
}

// Double multiplies every base entry by 2.
func (t *SlotTable) Double() {
	for i := range t.base {
		t.base[i] *= 2
	}
}

// Halve divides every base entry by 2 unless the table already sits at the
// floor, in which case it reports false and leaves the table alone.
func (t *SlotTable) Halve() bool {
	if t.Min() == t.floor {
		return false
	}
	for i := range t.base {
		t.base[i] /= 2
	}
	return true
}

// Regenerate returns this round's multipliers: the base table, and with
// probability 1/2 one uniformly chosen slot forced to zero (the skull).
// The second return is the skull index or -1.
func (t *SlotTable) Regenerate(rng RandomSource) ([]float64, int) {
	round := slices.Clone(t.base)
	skull := -1
	if len(round) > 0 && rng.Float64() < 0.5 {
		skull = rng.IntN(len(round))
		round[skull] = 0
	}
	return round, skull
}

// Slot is one scoring bucket of the current round.
type Slot struct {
	Index      int     `json:"index"`
	Rect       Rect    `json:"rect"`
	Multiplier float64 `json:"multiplier"`
	Skull      bool    `json:"skull"`
	Color      Color   `json:"color"`
}

// Color is a named palette entry with an alpha, as drawn behind a slot label.
type Color struct {
	Name  string  `json:"name"`
	Alpha float64 `json:"alpha"`
}

var (
	neutralColor     = Color{Name: "white", Alpha: 0.3}
	neutralColorHigh = Color{Name: "white", Alpha: 0.6}

	floorTierColors = map[float64]string{
		0.6: "blue",
		0.8: "green",
		1.2: "yellow",
		2.2: "orange",
		3.8: "red",
	}
	secondTierColors = map[float64]string{
		1.2: "blue",
		1.6: "green",
		2.4: "yellow",
		4.4: "orange",
		7.6: "red",
	}
)

// SlotColor picks the background for a slot. The tier is chosen by the
// table's current minimum; unknown multipliers (including the skull's 0)
// get the tier's neutral white.
func SlotColor(tableMin, multiplier float64) Color {
	switch tableMin {
	case FloorMultiplier:
		if name, ok := floorTierColors[multiplier]; ok {
			return Color{Name: name, Alpha: 0.3}
		}
		return neutralColor
	case SecondTierMultiplier:
		if name, ok := secondTierColors[multiplier]; ok {
			return Color{Name: name, Alpha: 0.6}
		}
		return neutralColorHigh
	default:
		return neutralColor
	}
}
