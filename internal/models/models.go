package models

import (
	"database/sql"
	"time"
)

// Player represents a registered player
type Player struct {
	ID         int          `db:"id" json:"id"`
	Nickname   string       `db:"nickname" json:"nickname"`
	PinHash    string       `db:"pin_hash" json:"-"`
	Score      int          `db:"score" json:"score"`
	IsActive   bool         `db:"is_active" json:"is_active"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	LastActive sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// Leader is one leaderboard row keyed by nickname
type Leader struct {
	Nickname  string    `db:"nickname" json:"nickname"`
	Score     int       `db:"score" json:"score"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Settings are a player's audio and haptics preferences
type Settings struct {
	SoundVolume      float64 `json:"sound_volume"`
	BackgroundVolume float64 `json:"background_volume"`
	SoundEnabled     bool    `json:"sound_enabled"`
	Vibration        bool    `json:"vibration"`
}
