package provider

import (
	"fmt"
	"sync"

	"dbpilot/internal/pool"
)

// Deps carries the shared dependencies a factory may need. Scope is nil for
// scope-independent providers. Pool is the process-wide connection pool,
// passed by reference; providers only ever borrow connections from it.
type Deps struct {
	Scope *Scope
	Pool  *pool.Pool
}

// Factory constructs a provider from its dependencies. Construction must be
// cheap; expensive resource acquisition belongs in Initialize.
type Factory func(deps Deps) (Provider, error)

// Registry maps provider names to factories. It replaces dynamic
// class loading: providers are still configured by name, but resolution is
// a map lookup built at startup instead of runtime reflection.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under a name. Registering the same name twice is
// an error so configuration typos surface at startup.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Lookup returns the factory for a name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	return factory, exists
}

// Names returns all registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}
