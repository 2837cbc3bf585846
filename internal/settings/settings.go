// Package settings stores each player's audio and haptics preferences.
package settings

import (
	"context"
	"fmt"
	"math"

	"github.com/plinkoplus/backend/internal/models"
)

// Store persists settings per player. Load reports false when the player
// has never saved any.
type Store interface {
	Load(ctx context.Context, playerID int) (models.Settings, bool, error)
	Save(ctx context.Context, playerID int, s models.Settings) error
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	SoundVolume      *float64 `json:"sound_volume"`
	BackgroundVolume *float64 `json:"background_volume"`
	SoundEnabled     *bool    `json:"sound_enabled"`
	Vibration        *bool    `json:"vibration"`
}

type Service struct {
	store    Store
	defaults models.Settings
}

// Defaults returns the factory settings with both volumes at volume.
func Defaults(volume float64) models.Settings {
	return models.Settings{
		SoundVolume:      clampVolume(volume),
		BackgroundVolume: clampVolume(volume),
		SoundEnabled:     true,
		Vibration:        true,
	}
}

func NewService(store Store, defaultVolume float64) *Service {
	return &Service{store: store, defaults: Defaults(defaultVolume)}
}

// Get returns the player's settings, or the defaults if none are saved.
func (s *Service) Get(ctx context.Context, playerID int) (models.Settings, error) {
	st, ok, err := s.store.Load(ctx, playerID)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return s.defaults, nil
	}
	return st, nil
}

// Update applies p on top of the current settings. Volumes are clamped
// to [0, 1].
func (s *Service) Update(ctx context.Context, playerID int, p Patch) (models.Settings, error) {
	st, err := s.Get(ctx, playerID)
	if err != nil {
		return st, err
	}
	if p.SoundVolume != nil {
		st.SoundVolume = clampVolume(*p.SoundVolume)
	}
	if p.BackgroundVolume != nil {
		st.BackgroundVolume = clampVolume(*p.BackgroundVolume)
	}
	if p.SoundEnabled != nil {
		st.SoundEnabled = *p.SoundEnabled
	}
	if p.Vibration != nil {
		st.Vibration = *p.Vibration
	}
	if err := s.store.Save(ctx, playerID, st); err != nil {
		return st, fmt.Errorf("save settings: %w", err)
	}
	return st, nil
}

// Reset restores the defaults.
func (s *Service) Reset(ctx context.Context, playerID int) (models.Settings, error) {
	if err := s.store.Save(ctx, playerID, s.defaults); err != nil {
		return s.defaults, fmt.Errorf("reset settings: %w", err)
	}
	return s.defaults, nil
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
