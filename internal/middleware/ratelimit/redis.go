package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sharedTimeout = 250 * time.Millisecond

type redisWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func windowKey(key string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, now.UnixNano()/int64(window))
}

// allow counts one request against key's current window. The counter expires
// with the window.
func (w *redisWindow) allow(ctx context.Context, key string, now time.Time) (bool, error) {
	k := windowKey(key, now, w.window)

	pipe := w.client.TxPipeline()
	count := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, w.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count request: %w", err)
	}

	return count.Val() <= int64(w.limit), nil
}
