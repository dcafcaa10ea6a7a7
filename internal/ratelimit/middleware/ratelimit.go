// Package middleware applies rate limiting at the transport boundary, keyed
// by client IP. Verification requests reach the orchestrator already
// admitted by this layer.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"popcheck/internal/ratelimit/models"
	"popcheck/pkg/platform/httputil"
	metadata "popcheck/pkg/platform/middleware/metadata"
)

// Limiter is what the middleware needs from the rate limit service.
type Limiter interface {
	CheckPreset(ctx context.Context, key string, preset models.Preset) *models.Result
}

// Middleware gates requests through the rate limit service.
type Middleware struct {
	limiter  Limiter
	logger   *slog.Logger
	disabled bool
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// New creates rate limit middleware over the service.
func New(limiter Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit returns middleware enforcing the preset per client IP. Headers
// are set on every response so well-behaved clients can pace themselves.
func (m *Middleware) RateLimit(preset models.Preset) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := metadata.GetClientIP(ctx)

			result := m.limiter.CheckPreset(ctx, models.IPKey(ip), preset)

			addRateLimitHeaders(w, result)

			if !result.Success {
				m.logger.Info("rate limit exceeded", "ip", ip, "preset", string(preset))
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.ResetIn))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.Result{
		Success:   false,
		Limit:     result.Limit,
		Remaining: 0,
		ResetAt:   result.ResetAt,
		ResetIn:   result.ResetIn,
	})
}
