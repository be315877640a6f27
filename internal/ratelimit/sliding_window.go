package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// checkSlidingWindowLimit implements the sliding window rate limiting algorithm
// using Redis sorted sets. Each request is stored with its timestamp as the score.
func (r *RateLimiter) checkSlidingWindowLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMicro()

	client := r.cache.Client()
	pipe := client.Pipeline()

	// Remove entries outside the window
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, 0, fmt.Errorf("failed to execute rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		return false, 0, nil
	}

	// Member must be unique even when two requests share a microsecond.
	err := client.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMicro()),
		Member: uuid.NewString(),
	}).Err()
	if err != nil {
		return false, limit - count, fmt.Errorf("failed to add rate limit entry: %w", err)
	}

	// Best effort: the key is rebuilt on the next request if this fails
	_ = client.Expire(ctx, key, window+time.Second).Err()

	return true, limit - count - 1, nil
}

// ResetLimit resets the rate limit for an identifier
func (r *RateLimiter) ResetLimit(ctx context.Context, identifier string) error {
	if err := r.cache.Client().Del(ctx, r.key(identifier)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}
