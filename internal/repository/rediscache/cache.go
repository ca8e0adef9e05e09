// Package rediscache backs the segment preview count cache with Redis.
package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dinelight/guestflow/internal/pkg/logger"
)

// CountCache implements segments.CountCache. Cache failures are soft: a
// miss is returned and the caller recomputes.
type CountCache struct {
	client *redis.Client
}

// New creates a count cache over an existing Redis client.
func New(client *redis.Client) *CountCache {
	return &CountCache{client: client}
}

func (c *CountCache) GetCount(ctx context.Context, key string) (int, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		logger.Warn("preview cache read failed", "error", err.Error())
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *CountCache) SetCount(ctx context.Context, key string, count int, ttl time.Duration) {
	if err := c.client.Set(ctx, key, strconv.Itoa(count), ttl).Err(); err != nil {
		logger.Warn("preview cache write failed", "error", err.Error())
	}
}
