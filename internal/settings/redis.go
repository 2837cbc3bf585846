package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/plinkoplus/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps settings in a hash per player.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func key(playerID int) string {
	return fmt.Sprintf("settings:%d", playerID)
}

func (r *RedisStore) Load(ctx context.Context, playerID int) (models.Settings, bool, error) {
	vals, err := r.rdb.HGetAll(ctx, key(playerID)).Result()
	if err != nil {
		return models.Settings{}, false, err
	}
	if len(vals) == 0 {
		return models.Settings{}, false, nil
	}
	return decodeHash(vals), true, nil
}

func (r *RedisStore) Save(ctx context.Context, playerID int, s models.Settings) error {
	return r.rdb.HSet(ctx, key(playerID), encodeHash(s)).Err()
}

func encodeHash(s models.Settings) map[string]any {
	return map[string]any{
		"sound_volume":      strconv.FormatFloat(s.SoundVolume, 'f', -1, 64),
		"background_volume": strconv.FormatFloat(s.BackgroundVolume, 'f', -1, 64),
		"sound_enabled":     strconv.FormatBool(s.SoundEnabled),
		"vibration":         strconv.FormatBool(s.Vibration),
	}
}

// decodeHash falls back to the defaults for missing or malformed fields.
func decodeHash(vals map[string]string) models.Settings {
	s := Defaults(0.5)
	if v, err := strconv.ParseFloat(vals["sound_volume"], 64); err == nil {
		s.SoundVolume = clampVolume(v)
	}
	if v, err := strconv.ParseFloat(vals["background_volume"], 64); err == nil {
		s.BackgroundVolume = clampVolume(v)
	}
	if v, err := strconv.ParseBool(vals["sound_enabled"]); err == nil {
		s.SoundEnabled = v
	}
	if v, err := strconv.ParseBool(vals["vibration"]); err == nil {
		s.Vibration = v
	}
	return s
}
