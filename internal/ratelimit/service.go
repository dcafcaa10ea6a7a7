// Package ratelimit admits or rejects callers by key within fixed time
// windows. Two interchangeable stores sit behind one contract: an in-memory
// backend and a distributed redis backend; when the distributed store errors
// the service degrades to the in-memory fallback rather than failing the
// request.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"popcheck/internal/ratelimit/metrics"
	"popcheck/internal/ratelimit/models"
	"popcheck/internal/ratelimit/store/memory"
)

// Store is the backend contract. Implementations: store/memory, store/redisstore.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// Service checks limits against a primary store with in-memory failover.
type Service struct {
	primary  Store
	fallback Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFallback overrides the in-memory fallback store.
func WithFallback(store Store) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

// New creates a rate limit service over the primary store. Passing the
// in-memory store as primary is the single-process configuration; then the
// fallback never activates.
func New(primary Store, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, errors.New("primary store is required")
	}
	svc := &Service{
		primary:  primary,
		fallback: memory.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckLimit checks key against an explicit limit and window.
// A store outage never rejects the request: the fallback answers instead.
func (s *Service) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) *models.Result {
	result, err := s.primary.Allow(ctx, key, limit, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordFallback()
		}
		s.logger.Warn("rate limit store unavailable, using in-memory fallback", "error", err)
		result, err = s.fallback.Allow(ctx, key, limit, window)
		if err != nil {
			// Both stores down is unreachable for the memory fallback; fail open
			// so a limiter bug cannot take the service down with it.
			s.logger.Error("rate limit fallback failed", "error", err)
			return &models.Result{Success: true, Limit: limit, Remaining: limit, ResetAt: time.Now().Add(window), ResetIn: int(window / time.Second)}
		}
	}

	if s.metrics != nil {
		if result.Success {
			s.metrics.RecordAllowed()
		} else {
			s.metrics.RecordRejected()
		}
	}
	return result
}

// CheckPreset checks key against a named preset tier.
func (s *Service) CheckPreset(ctx context.Context, key string, preset models.Preset) *models.Result {
	limit, window := preset.Limits()
	return s.CheckLimit(ctx, key, limit, window)
}
