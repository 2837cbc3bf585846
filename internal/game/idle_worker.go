package game

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartIdleWorker closes sessions whose idle deadline in the Redis sorted
// set has passed. Sessions owned by another instance are left alone.
func StartIdleWorker(ctx context.Context, rdb *redis.Client, mgr *Manager, store *Store, poll time.Duration) {
	if rdb == nil || mgr == nil {
		zap.S().Info("[IDLE] Redis or manager missing; idle worker not started")
		return
	}
	if poll <= 0 {
		poll = 15 * time.Second
	}

	zap.S().Info("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				zap.S().Info("[IDLE] Idle worker stopping")
				return
			case <-ticker.C:
				expireIdleSessions(ctx, rdb, mgr, store, time.Now())
			}
		}
	}()
}

func expireIdleSessions(ctx context.Context, rdb *redis.Client, mgr *Manager, store *Store, now time.Time) {
	ids, err := rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		zap.S().Warnf("[IDLE] Failed to fetch idle sessions: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := mgr.Get(id); err != nil {
			continue
		}
		// Attempt to remove (race-safe across instances)
		removed, err := rdb.ZRem(ctx, IdleSetKey, id).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := mgr.Close(id, StatusExpired); err != nil {
			zap.S().Warnf("[IDLE] close %s: %v", id, err)
			continue
		}
		if store != nil {
			store.Forget(ctx, id)
		}
		zap.S().Infof("[IDLE] expired session %s", id)
	}
}
