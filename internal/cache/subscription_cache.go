package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okdriver/backend/internal/models"
)

const (
	subscriptionKeyPrefix = "subscription:active"
	generationKeyPrefix   = "subscription:gen"

	// generationTTL must outlive every entry written under a generation.
	generationTTL = 24 * time.Hour
)

// noSubscription marks a cached "user has no active subscription" answer.
const noSubscription = "none"

// SubscriptionCache caches GetActive answers per user.
//
// Entries are keyed by a per-user generation. Invalidate bumps the
// generation, so an answer read from the database before a purchase and
// written after it lands under a generation nobody reads anymore.
// A cache failure is never fatal: callers fall through to the database.
type SubscriptionCache struct {
	redis *Redis
	ttl   time.Duration
	log   *slog.Logger
}

// NewSubscriptionCache creates a subscription cache with the given TTL
func NewSubscriptionCache(r *Redis, ttl time.Duration, log *slog.Logger) *SubscriptionCache {
	if ttl > generationTTL {
		ttl = generationTTL
	}
	return &SubscriptionCache{
		redis: r,
		ttl:   ttl,
		log:   log.With(slog.String("component", "subscription_cache")),
	}
}

// Generation returns the user's current cache generation. ok is false when
// the generation could not be read, in which case the cache must be bypassed.
func (c *SubscriptionCache) Generation(ctx context.Context, userID string) (int64, bool) {
	raw, err := c.redis.Get(ctx, generationKey(userID))
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.WarnContext(ctx, "cache generation read failed", "user_id", userID, "error", err)
		return 0, false
	}

	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// Get returns the cached subscription (possibly nil) and whether the cache had an answer.
func (c *SubscriptionCache) Get(ctx context.Context, userID string, gen int64) (*models.Subscription, bool) {
	raw, err := c.redis.Get(ctx, subscriptionKey(userID, gen))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "cache read failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	if raw == noSubscription {
		return nil, true
	}

	var sub models.Subscription
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		return nil, false
	}
	return &sub, true
}

// Set stores the answer for userID under gen; sub may be nil.
func (c *SubscriptionCache) Set(ctx context.Context, userID string, gen int64, sub *models.Subscription) {
	value := noSubscription
	if sub != nil {
		data, err := json.Marshal(sub)
		if err != nil {
			return
		}
		value = string(data)
	}

	if err := c.redis.Set(ctx, subscriptionKey(userID, gen), value, c.ttl); err != nil {
		c.log.WarnContext(ctx, "cache write failed", "user_id", userID, "error", err)
	}
}

// Invalidate moves userID to a new generation, orphaning every cached answer.
func (c *SubscriptionCache) Invalidate(ctx context.Context, userID string) {
	if _, err := c.redis.Incr(ctx, generationKey(userID), generationTTL); err != nil {
		c.log.WarnContext(ctx, "cache invalidation failed", "user_id", userID, "error", err)
	}
}

func subscriptionKey(userID string, gen int64) string {
	return subscriptionKeyPrefix + ":" + userID + ":" + strconv.FormatInt(gen, 10)
}

func generationKey(userID string) string {
	return generationKeyPrefix + ":" + userID
}
