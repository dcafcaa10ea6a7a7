// Package memory implements the fixed-window rate limit store used both as
// the single-process backend and as the fallback when the distributed store
// is unreachable. Capacity is bounded: a flood of distinct keys (e.g. a
// distributed-origin attack rotating source addresses) evicts the
// least-recently-touched tenth instead of growing without bound.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"popcheck/internal/ratelimit/models"
)

// DefaultMaxEntries bounds how many distinct keys the store tracks.
const DefaultMaxEntries = 10_000

type entry struct {
	key     string
	count   int
	resetAt time.Time
}

// Store is a fixed-window counter map with LRU-bounded capacity. The recency
// list front holds the most recently touched key; eviction trims from the
// back.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*list.Element // key -> element holding *entry
	order      *list.List
	maxEntries int
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries overrides the tracked-key capacity.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow checks the key against limit within window, incrementing on success.
// A request with no entry or an expired one starts a fresh window; one at the
// limit is rejected without incrementing.
func (s *Store) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	elem, ok := s.entries[key]
	if !ok {
		s.insert(key, now.Add(window))
		return allowed(limit, 1, now.Add(window), now), nil
	}

	e := elem.Value.(*entry)
	s.order.MoveToFront(elem)

	if !now.Before(e.resetAt) {
		// Window elapsed: restart it
		e.count = 1
		e.resetAt = now.Add(window)
		return allowed(limit, 1, e.resetAt, now), nil
	}

	if e.count >= limit {
		return &models.Result{
			Success:   false,
			Limit:     limit,
			Remaining: 0,
			ResetAt:   e.resetAt,
			ResetIn:   resetIn(e.resetAt, now),
		}, nil
	}

	e.count++
	return allowed(limit, e.count, e.resetAt, now), nil
}

// Reset clears the counter for a key.
func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.entries[key]; ok {
		s.order.Remove(elem)
		delete(s.entries, key)
	}
	return nil
}

// Len reports how many distinct keys are tracked.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// insert adds a fresh window entry, evicting the LRU tenth if at capacity.
// Must be called with the mutex held.
func (s *Store) insert(key string, resetAt time.Time) {
	if len(s.entries) >= s.maxEntries {
		s.evictLRU()
	}
	e := &entry{key: key, count: 1, resetAt: resetAt}
	s.entries[key] = s.order.PushFront(e)
}

// evictLRU drops the least-recently-touched 10% of keys (at least one).
// Must be called with the mutex held.
func (s *Store) evictLRU() {
	n := s.maxEntries / 10
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		back := s.order.Back()
		if back == nil {
			return
		}
		s.order.Remove(back)
		delete(s.entries, back.Value.(*entry).key)
	}
}

func allowed(limit, count int, resetAt, now time.Time) *models.Result {
	return &models.Result{
		Success:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
		ResetIn:   resetIn(resetAt, now),
	}
}

func resetIn(resetAt, now time.Time) int {
	secs := int(resetAt.Sub(now).Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
