// Package ratelimit implements a Redis-backed rolling window counter used to
// cap how often a user may trigger a mailbox sync.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// WindowLimiter counts events per key within a rolling window.
type WindowLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	window time.Duration
	limit  int64
}

// NewWindowLimiter creates a limiter allowing `limit` events per `window`.
func NewWindowLimiter(rdb redis.UniversalClient, prefix string, window time.Duration, limit int64) *WindowLimiter {
	return &WindowLimiter{rdb: rdb, prefix: prefix, window: window, limit: limit}
}

// Allow records one event for key and reports whether it stays within the
// limit. Uses a sorted set of event timestamps trimmed to the window.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	cutoff := now.Add(-l.window).UnixNano()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}

	if countCmd.Val() >= l.limit {
		return false, nil
	}

	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
	pipe = l.rdb.TxPipeline()
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}
	return true, nil
}

// Remaining returns how many events key has left in the current window.
func (l *WindowLimiter) Remaining(ctx context.Context, key string) (int64, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	cutoff := time.Now().Add(-l.window).UnixNano()
	if err := l.rdb.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff)).Err(); err != nil {
		return 0, fmt.Errorf("ratelimit: %w", err)
	}
	count, err := l.rdb.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("ratelimit: %w", err)
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
