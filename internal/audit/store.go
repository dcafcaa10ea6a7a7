package audit

import (
	"context"
	"sync"
)

// Store is the append-only sink the worker drains into.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}

// MemoryStore keeps the most recent events in process memory, oldest dropped
// first once the cap is reached.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

const defaultMemoryCap = 10_000

// NewMemoryStore creates a bounded in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cap: defaultMemoryCap}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.cap {
		s.events = s.events[1:]
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len reports how many events are currently retained.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
