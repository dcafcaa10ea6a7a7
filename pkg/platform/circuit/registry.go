package circuit

import "sync"

// Registry holds one breaker per named dependency so unrelated call sites
// sharing a dependency share its protection state. Lazily populated; lives
// for the process lifetime at the composition root.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults []Option
}

// NewRegistry creates an empty registry. Options given here apply to every
// breaker the registry creates, before per-breaker options.
func NewRegistry(defaults ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
	}
}

// Get returns the breaker for name, creating it on first use. Options are
// only applied at creation; later lookups share the existing instance.
func (r *Registry) Get(name string, opts ...Option) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	all := make([]Option, 0, len(r.defaults)+len(opts))
	all = append(all, r.defaults...)
	all = append(all, opts...)
	b := New(name, all...)
	r.breakers[name] = b
	return b
}
