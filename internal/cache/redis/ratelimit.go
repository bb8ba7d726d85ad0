package redis

import (
	"context"
	"fmt"
	"time"

	"sentitrade/internal/domain"
)

// RateLimiter implements a fixed-window counter per key. The first hit in a
// window creates the counter with the window as TTL; the counter expires on
// its own.
type RateLimiter struct {
	client *Client
}

// NewRateLimiter creates a RateLimiter backed by the given client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{client: c}
}

// Allow reports whether another request under key fits within limit for the
// current window.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := rl.client.Underlying()

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit incr %s: %w", key, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("redis: rate limit expire %s: %w", key, err)
		}
	}
	return count <= int64(limit), nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
