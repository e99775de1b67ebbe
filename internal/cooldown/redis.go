package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps cooldowns in redis so every instance of the API shares them
type Redis struct {
	rdb    redis.UniversalClient
	window time.Duration
	prefix string
}

func NewRedis(rdb redis.UniversalClient, prefix string, window time.Duration) *Redis {
	return &Redis{
		rdb:    rdb,
		window: window,
		prefix: prefix,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if r.window <= 0 {
		return true, 0, nil
	}

	k := r.prefix + key

	ok, err := r.rdb.SetNX(ctx, k, 1, r.window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to set cooldown, %w", err)
	}

	if ok {
		return true, 0, nil
	}

	wait, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read cooldown, %w", err)
	}

	// Negative values mean the key vanished or has no expiry
	if wait < 0 {
		wait = r.window
	}

	return false, wait, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to clear cooldown, %w", err)
	}

	return nil
}
