package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const usedCodeKeyPrefix = "replay:code:"

// RedisGuard shares replay state across process instances. Key expiry does
// the sweeping, so there is no cleanup loop here.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisGuard.
type RedisOption func(*RedisGuard)

// WithRedisTTL overrides the entry lifetime.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(g *RedisGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// NewRedis creates a redis-backed replay guard.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisGuard {
	g := &RedisGuard{client: client, ttl: TTL}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsUsed reports whether the triple's key still exists.
func (g *RedisGuard) IsUsed(ctx context.Context, storeID, userID, code string) (bool, error) {
	key := usedCodeKeyPrefix + hashKey(storeID, userID, code)
	_, err := g.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("replay guard get: %w", err)
	}
	return true, nil
}

// MarkUsed records the triple with TTL expiry.
func (g *RedisGuard) MarkUsed(ctx context.Context, storeID, userID, code string) error {
	key := usedCodeKeyPrefix + hashKey(storeID, userID, code)
	if err := g.client.Set(ctx, key, "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("replay guard set: %w", err)
	}
	return nil
}

// CheckAndMark uses SET NX so check and consume are one atomic round trip:
// a false SetNX result means another caller got there first.
func (g *RedisGuard) CheckAndMark(ctx context.Context, storeID, userID, code string) (bool, error) {
	key := usedCodeKeyPrefix + hashKey(storeID, userID, code)
	set, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay guard setnx: %w", err)
	}
	return !set, nil
}
