package game

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoardConfig describes the peg field and the slot row. Zero fields fall
// back to the built-in defaults when loaded from YAML.
type BoardConfig struct {
	Width           float64   `yaml:"width" json:"width"`
	Height          float64   `yaml:"height" json:"height"`
	BallRadius      float64   `yaml:"ball_radius" json:"ball_radius"`
	PegRadius       float64   `yaml:"peg_radius" json:"peg_radius"`
	PegRows         int       `yaml:"peg_rows" json:"peg_rows"`
	PegsFirstRow    int       `yaml:"pegs_first_row" json:"pegs_first_row"`
	PegsLastRow     int       `yaml:"pegs_last_row" json:"pegs_last_row"`
	PegSpacing      float64   `yaml:"peg_spacing" json:"peg_spacing"`
	SlotWidth       float64   `yaml:"slot_width" json:"slot_width"`
	SlotHeight      float64   `yaml:"slot_height" json:"slot_height"`
	SlotGap         float64   `yaml:"slot_gap" json:"slot_gap"`
	SlotBaseY       float64   `yaml:"slot_base_y" json:"slot_base_y"`
	HorizontalLimit float64   `yaml:"horizontal_limit" json:"horizontal_limit"`
	Multipliers     []float64 `yaml:"multipliers" json:"multipliers"`
	FloorMultiplier float64   `yaml:"floor_multiplier" json:"floor_multiplier"`
}

// DefaultBoardConfig returns the standard 9-slot board.
func DefaultBoardConfig() BoardConfig {
	m := make([]float64, len(DefaultMultipliers))
	copy(m, DefaultMultipliers)
	return BoardConfig{
		Width:           BoardWidth,
		Height:          BoardHeight,
		BallRadius:      BallRadius,
		PegRadius:       PegRadius,
		PegRows:         PegRows,
		PegsFirstRow:    PegsFirstRow,
		PegsLastRow:     PegsLastRow,
		PegSpacing:      PegSpacing,
		SlotWidth:       SlotWidth,
		SlotHeight:      SlotHeight,
		SlotGap:         SlotGap,
		SlotBaseY:       SlotBaseY,
		HorizontalLimit: HorizontalLimit,
		Multipliers:     m,
		FloorMultiplier: FloorMultiplier,
	}
}

// LoadBoardConfig reads a YAML board file and overlays it on the defaults.
// A missing file yields the defaults.
func LoadBoardConfig(path string) (BoardConfig, error) {
	cfg := DefaultBoardConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read board config: %w", err)
	}
	var raw BoardConfig
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return cfg, fmt.Errorf("parse board config %s: %w", path, err)
	}
	cfg = mergeBoardConfig(cfg, raw)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("board config %s: %w", path, err)
	}
	return cfg, nil
}

func mergeBoardConfig(dst, src BoardConfig) BoardConfig {
	setF := func(d *float64, s float64) {
		if s != 0 {
			*d = s
		}
	}
	setI := func(d *int, s int) {
		if s != 0 {
			*d = s
		}
	}
	setF(&dst.Width, src.Width)
	setF(&dst.Height, src.Height)
	setF(&dst.BallRadius, src.BallRadius)
	setF(&dst.PegRadius, src.PegRadius)
	setI(&dst.PegRows, src.PegRows)
	setI(&dst.PegsFirstRow, src.PegsFirstRow)
	setI(&dst.PegsLastRow, src.PegsLastRow)
	setF(&dst.PegSpacing, src.PegSpacing)
	setF(&dst.SlotWidth, src.SlotWidth)
	setF(&dst.SlotHeight, src.SlotHeight)
	setF(&dst.SlotGap, src.SlotGap)
	setF(&dst.SlotBaseY, src.SlotBaseY)
	setF(&dst.HorizontalLimit, src.HorizontalLimit)
	setF(&dst.FloorMultiplier, src.FloorMultiplier)
	if len(src.Multipliers) > 0 {
		dst.Multipliers = append([]float64(nil), src.Multipliers...)
	}
	return dst
}

// Validate checks the board is playable: dimensions are positive, the slot
// row fits on the board and the multiplier table is symmetric and contains
// the floor value.
func (c BoardConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.BallRadius <= 0 || c.PegRadius <= 0 {
		return errors.New("dimensions must be positive")
	}
	if c.PegRows < 2 || c.PegsFirstRow < 1 || c.PegsLastRow < c.PegsFirstRow {
		return fmt.Errorf("invalid peg rows: rows=%d first=%d last=%d", c.PegRows, c.PegsFirstRow, c.PegsLastRow)
	}
	n := len(c.Multipliers)
	if n == 0 {
		return errors.New("multipliers must not be empty")
	}
	if total := float64(n)*c.SlotWidth + float64(n-1)*c.SlotGap; total > c.Width {
		return fmt.Errorf("slot row %.1f wider than board %.1f", total, c.Width)
	}
	hasFloor := false
	for i, m := range c.Multipliers {
		if m <= 0 {
			return fmt.Errorf("multiplier %d must be positive, got %v", i, m)
		}
		if m != c.Multipliers[n-1-i] {
			return fmt.Errorf("multipliers not symmetric at %d: %v != %v", i, m, c.Multipliers[n-1-i])
		}
		if m == c.FloorMultiplier {
			hasFloor = true
		}
	}
	if !hasFloor {
		return fmt.Errorf("floor multiplier %v not present in table", c.FloorMultiplier)
	}
	return nil
}

// Rect is an axis-aligned rectangle anchored at its bottom-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies in the rectangle. The min edges are
// inclusive and the max edges exclusive so adjacent rectangles never share a point.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Peg is a static obstacle in the field.
type Peg struct {
	ID       int  `json:"id"`
	Position Vec2 `json:"position"`
}

// Board is the resolved geometry of a BoardConfig.
type Board struct {
	Config    BoardConfig
	Pegs      []Peg
	SlotRects []Rect
	Walls     []Rect // slot side walls and floors
}

// NewBoard lays out pegs as an inverted triangle and the slot row centered
// at the bottom of the field.
func NewBoard(cfg BoardConfig) *Board {
	b := &Board{Config: cfg}

	topY := cfg.Height * PegTopRatio
	id := 0
	for i := 0; i < cfg.PegRows; i++ {
		pegsInRow := cfg.PegsFirstRow + i*(cfg.PegsLastRow-cfg.PegsFirstRow)/(cfg.PegRows-1)
		totalWidth := float64(pegsInRow-1) * cfg.PegSpacing
		xOffset := (cfg.Width - totalWidth) / 2
		for j := 0; j < pegsInRow; j++ {
			b.Pegs = append(b.Pegs, Peg{
				ID:       id,
				Position: NewVec2(xOffset+float64(j)*cfg.PegSpacing, topY-float64(i)*cfg.PegSpacing),
			})
			id++
		}
	}

	n := len(cfg.Multipliers)
	startX := b.slotStartX()
	for i := 0; i < n; i++ {
		x := startX + float64(i)*(cfg.SlotWidth+cfg.SlotGap)
		b.SlotRects = append(b.SlotRects, Rect{X: x, Y: cfg.SlotBaseY, W: cfg.SlotWidth, H: cfg.SlotHeight})
		half := SlotWallWidth / 2
		b.Walls = append(b.Walls,
			Rect{X: x - half, Y: cfg.SlotBaseY, W: SlotWallWidth, H: cfg.SlotHeight},
			Rect{X: x + cfg.SlotWidth - half, Y: cfg.SlotBaseY, W: SlotWallWidth, H: cfg.SlotHeight},
			Rect{X: x, Y: cfg.SlotBaseY - half, W: cfg.SlotWidth, H: SlotWallWidth},
		)
	}
	return b
}

// NewDefaultBoard is NewBoard(DefaultBoardConfig()).
func NewDefaultBoard() *Board {
	return NewBoard(DefaultBoardConfig())
}

func (b *Board) slotStartX() float64 {
	n := float64(len(b.Config.Multipliers))
	total := n*b.Config.SlotWidth + (n-1)*b.Config.SlotGap
	return (b.Config.Width - total) / 2
}

// CenterX is the horizontal center of the playfield.
func (b *Board) CenterX() float64 {
	return b.Config.Width / 2
}

// LaunchY is the height balls are released from.
func (b *Board) LaunchY() float64 {
	return b.Config.Height - LaunchOffsetY
}

// DropWindow is the horizontal interval a ball may be released in.
func (b *Board) DropWindow() (min, max float64) {
	c := b.CenterX()
	return c - b.Config.HorizontalLimit, c + b.Config.HorizontalLimit
}

// ClampDropX constrains x to the drop window.
func (b *Board) ClampDropX(x float64) float64 {
	lo, hi := b.DropWindow()
	return clamp(x, lo, hi)
}
