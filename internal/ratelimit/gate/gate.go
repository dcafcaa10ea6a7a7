// Package gate provides a concurrency admission gate: unlike the window
// limiter, which counts requests over time, the gate caps how many calls are
// in flight at once. It protects quota-limited downstreams (the OCR provider)
// from concurrent overload independent of request rate.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"

	"popcheck/internal/ratelimit/metrics"
)

// Gate admits up to max concurrent holders. Waiters are served in FIFO
// arrival order (semaphore.Weighted queues waiters in order).
type Gate struct {
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
}

// Option configures a Gate.
type Option func(*Gate)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New creates a gate admitting max concurrent calls. max < 1 is clamped to 1.
func New(max int64, opts ...Option) *Gate {
	if max < 1 {
		max = 1
	}
	g := &Gate{sem: semaphore.NewWeighted(max)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Acquire blocks until a slot frees or ctx is done. A nil return means the
// caller holds a slot and must Release it exactly once.
func (g *Gate) Acquire(ctx context.Context) error {
	if g.sem.TryAcquire(1) {
		return nil
	}
	if g.metrics != nil {
		g.metrics.GateWaiting.Inc()
		defer g.metrics.GateWaiting.Dec()
	}
	return g.sem.Acquire(ctx, 1)
}

// TryAcquire takes a slot without waiting, reporting whether it succeeded.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release frees a slot, waking the longest-waiting caller.
func (g *Gate) Release() {
	g.sem.Release(1)
}
