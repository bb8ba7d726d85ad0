package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sentitrade/internal/domain"
)

// CooldownStore implements domain.CooldownStore. Each source's backoff state
// is an explicit {nextAllowedAt} record at "cooldown:{source}", not an
// in-process map, so it survives restarts and is observable from outside.
type CooldownStore struct {
	rdb *redis.Client
}

// NewCooldownStore creates a CooldownStore backed by the given Client.
func NewCooldownStore(c *Client) *CooldownStore {
	return &CooldownStore{rdb: c.Underlying()}
}

func cooldownKey(source string) string {
	return "cooldown:" + source
}

// SetNextAllowedAt records when the source may next be called. The key
// expires on its own once the cooldown has passed.
func (cs *CooldownStore) SetNextAllowedAt(ctx context.Context, source string, at time.Time) error {
	ttl := time.Until(at)
	if ttl <= 0 {
		return cs.rdb.Del(ctx, cooldownKey(source)).Err()
	}
	err := cs.rdb.Set(ctx, cooldownKey(source), strconv.FormatInt(at.UnixNano(), 10), ttl).Err()
	if err != nil {
		return fmt.Errorf("redis: set cooldown %s: %w", source, err)
	}
	return nil
}

// NextAllowedAt returns the recorded time for a source, or the zero time
// when no cooldown is active.
func (cs *CooldownStore) NextAllowedAt(ctx context.Context, source string) (time.Time, error) {
	val, err := cs.rdb.Get(ctx, cooldownKey(source)).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: get cooldown %s: %w", source, err)
	}
	nano, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: parse cooldown %s: %w", source, err)
	}
	return time.Unix(0, nano), nil
}

// Compile-time interface check.
var _ domain.CooldownStore = (*CooldownStore)(nil)
