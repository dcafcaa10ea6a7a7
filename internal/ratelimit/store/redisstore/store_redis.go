// Package redisstore implements the distributed rate limit backend. Multiple
// process instances share one counter per key via atomic INCR with window
// expiry; arrival order across instances is not preserved, only the count.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"popcheck/internal/ratelimit/models"
)

const bucketKeyPrefix = "rl:bucket:"

// Store counts requests per key in redis fixed windows.
type Store struct {
	client *redis.Client
}

// New creates a redis-backed rate limit store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Allow increments the window counter and checks it against the limit. The
// first increment of a window sets its expiry; the TTL drives ResetIn so all
// instances report the same reset horizon.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	bucketKey := bucketKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, bucketKey)
	ttl := pipe.TTL(ctx, bucketKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit incr: %w", err)
	}

	count := incr.Val()
	remainingTTL := ttl.Val()

	// First hit of a fresh window (or a key left without expiry by a crash
	// between INCR and EXPIRE): set the window expiry now.
	if count == 1 || remainingTTL < 0 {
		if err := s.client.Expire(ctx, bucketKey, window).Err(); err != nil {
			return nil, fmt.Errorf("rate limit expire: %w", err)
		}
		remainingTTL = window
	}

	now := time.Now()
	resetAt := now.Add(remainingTTL)
	resetIn := int(remainingTTL.Round(time.Second) / time.Second)

	if count > int64(limit) {
		return &models.Result{
			Success:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   resetAt,
			ResetIn:   resetIn,
		}, nil
	}

	return &models.Result{
		Success:   true,
		Limit:     limit,
		Remaining: limit - int(count),
		ResetAt:   resetAt,
		ResetIn:   resetIn,
	}, nil
}

// Reset clears the counter for a key.
func (s *Store) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, bucketKeyPrefix+key).Err()
}
