//go:build integration

package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"popcheck/internal/ratelimit/store/redisstore"
	"popcheck/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *redisstore.Store
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = redisstore.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		result, err := s.store.Allow(ctx, "ip:203.0.113.9", 5, time.Minute)
		s.Require().NoError(err)
		s.True(result.Success)
		s.Equal(5-i, result.Remaining)
	}

	result, err := s.store.Allow(ctx, "ip:203.0.113.9", 5, time.Minute)
	s.Require().NoError(err)
	s.False(result.Success)
	s.Equal(0, result.Remaining)
	s.Positive(result.ResetIn)
}

func (s *RedisStoreSuite) TestKeysAreIndependent() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.store.Allow(ctx, "ip:203.0.113.9", 5, time.Minute)
		s.Require().NoError(err)
	}

	result, err := s.store.Allow(ctx, "ip:198.51.100.4", 5, time.Minute)
	s.Require().NoError(err)
	s.True(result.Success)
}

func (s *RedisStoreSuite) TestWindowExpires() {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.store.Allow(ctx, "ip:203.0.113.9", 2, time.Second)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(ctx, "ip:203.0.113.9", 2, time.Second)
	s.Require().NoError(err)
	s.False(result.Success)

	s.Eventually(func() bool {
		result, err := s.store.Allow(ctx, "ip:203.0.113.9", 2, time.Second)
		return err == nil && result.Success
	}, 5*time.Second, 200*time.Millisecond)
}

func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.store.Allow(ctx, "ip:203.0.113.9", 3, time.Minute)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(ctx, "ip:203.0.113.9"))

	result, err := s.store.Allow(ctx, "ip:203.0.113.9", 3, time.Minute)
	s.Require().NoError(err)
	s.True(result.Success)
	s.Equal(2, result.Remaining)
}
