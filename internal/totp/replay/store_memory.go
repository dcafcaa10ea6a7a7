package replay

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// MemoryGuard is the in-process Guard. Cleanup is amortized: a sweep runs at
// most once per sweep interval, piggybacked on whichever call crosses the
// boundary, rather than on every operation.
type MemoryGuard struct {
	mu            sync.Mutex
	used          map[string]time.Time // hashed key -> usedAt
	ttl           time.Duration
	sweepInterval time.Duration
	lastSweep     time.Time
	now           func() time.Time
}

// MemoryOption configures a MemoryGuard.
type MemoryOption func(*MemoryGuard)

// WithTTL overrides the entry lifetime. Shortening it below the TOTP
// acceptance span reopens the replay hole; only tests should do that.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(g *MemoryGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithSweepInterval overrides how often the lazy sweep may run.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(g *MemoryGuard) {
		if d > 0 {
			g.sweepInterval = d
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewMemory creates an in-memory replay guard.
func NewMemory(opts ...MemoryOption) *MemoryGuard {
	g := &MemoryGuard{
		used:          make(map[string]time.Time),
		ttl:           TTL,
		sweepInterval: defaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.lastSweep = g.now()
	return g
}

// IsUsed reports whether the exact (storeID, userID, code) triple was
// accepted within the TTL.
func (g *MemoryGuard) IsUsed(_ context.Context, storeID, userID, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeSweep()

	usedAt, ok := g.used[hashKey(storeID, userID, code)]
	if !ok {
		return false, nil
	}
	return g.now().Sub(usedAt) <= g.ttl, nil
}

// MarkUsed records the triple as consumed.
func (g *MemoryGuard) MarkUsed(_ context.Context, storeID, userID, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeSweep()

	g.used[hashKey(storeID, userID, code)] = g.now()
	return nil
}

// CheckAndMark consumes the code unless it was already used. Atomic under
// the guard's mutex.
func (g *MemoryGuard) CheckAndMark(_ context.Context, storeID, userID, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maybeSweep()

	key := hashKey(storeID, userID, code)
	if usedAt, ok := g.used[key]; ok && g.now().Sub(usedAt) <= g.ttl {
		return true, nil
	}
	g.used[key] = g.now()
	return false, nil
}

// Len reports how many entries are currently tracked (expired included until
// the next sweep).
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.used)
}

// maybeSweep removes expired entries at bounded frequency. Must be called
// with the mutex held.
func (g *MemoryGuard) maybeSweep() {
	now := g.now()
	if now.Sub(g.lastSweep) < g.sweepInterval {
		return
	}
	g.lastSweep = now
	for key, usedAt := range g.used {
		if now.Sub(usedAt) > g.ttl {
			delete(g.used, key)
		}
	}
}
