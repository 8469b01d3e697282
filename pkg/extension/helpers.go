package extension

import (
	"fmt"
	"sort"
	"sync"
)

// HelperFunc is one method of a helper.
type HelperFunc func(args ...any) (any, error)

// Helper is a named table of methods exposed to templates through a facade.
type Helper map[string]HelperFunc

// Methods returns the sorted method names.
func (h Helper) Methods() []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry stores helpers by name, rejecting duplicates.
type Registry struct {
	mu      sync.RWMutex
	helpers map[string]Helper
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{helpers: make(map[string]Helper)}
}

// Register adds a helper. Duplicate or empty names return an error.
func (r *Registry) Register(name string, helper Helper) error {
	if name == "" {
		return fmt.Errorf("extension: helper name is required")
	}
	if helper == nil {
		return fmt.Errorf("extension: helper %q has no methods", name)
	}
	for method, fn := range helper {
		if fn == nil {
			return fmt.Errorf("extension: helper %q method %q is nil", name, method)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.helpers[name]; exists {
		return fmt.Errorf("extension: helper %q already registered", name)
	}
	r.helpers[name] = helper
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, helper Helper) {
	if err := r.Register(name, helper); err != nil {
		panic(err)
	}
}

// Get retrieves a helper by name.
func (r *Registry) Get(name string) (Helper, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	helper, ok := r.helpers[name]
	return helper, ok
}

// List returns a sorted list of helper names.
func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.helpers))
	for name := range r.helpers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
