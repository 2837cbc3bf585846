package leaderboard

import (
	"context"

	"github.com/plinkoplus/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKey = "leaderboard"

// RedisRepository mirrors the leaders in a sorted set for fast reads.
type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) Upsert(ctx context.Context, nickname string, score int) error {
	return r.rdb.ZAdd(ctx, redisKey, redis.Z{Score: float64(score), Member: nickname}).Err()
}

// List returns the cached leaders. Redis orders equal scores by member in
// reverse; callers re-sort ties by nickname.
func (r *RedisRepository) List(ctx context.Context) ([]models.Leader, error) {
	zs, err := r.rdb.ZRevRangeWithScores(ctx, redisKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	leaders := make([]models.Leader, 0, len(zs))
	for _, z := range zs {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}
		leaders = append(leaders, models.Leader{Nickname: name, Score: int(z.Score)})
	}
	return leaders, nil
}

func (r *RedisRepository) Reset(ctx context.Context) error {
	return r.rdb.Del(ctx, redisKey).Err()
}
