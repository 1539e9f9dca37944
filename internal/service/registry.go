package service

import (
	"sync"

	"github.com/WaffleHacks/wafflemaker/internal/metrics"
)

// Registry is the process-global name → Spec map. Readers may be
// concurrent; writers serialize, per spec §3.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]Spec)}
}

// Put replaces the entry for name, atomically making the new spec visible
// to subsequent readers.
func (r *Registry) Put(name string, spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[name] = spec
	metrics.ServicesManaged.Set(float64(len(r.specs)))
}

// Get returns the spec for name, if present.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Delete removes name from the registry. Returns true if it was present.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[name]; !ok {
		return false
	}
	delete(r.specs, name)
	metrics.ServicesManaged.Set(float64(len(r.specs)))
	return true
}

// Names returns every registered service name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	return names
}
