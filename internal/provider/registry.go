package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages the configured catalogs
type Registry struct {
	mu         sync.RWMutex
	catalogs   map[string]Catalog
	priorities map[string]int
}

// NewRegistry creates a new catalog registry
func NewRegistry() *Registry {
	return &Registry{
		catalogs:   make(map[string]Catalog),
		priorities: make(map[string]int),
	}
}

// Register adds a catalog to the registry
func (r *Registry) Register(catalog Catalog, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := catalog.Name()
	if _, exists := r.catalogs[name]; exists {
		return fmt.Errorf("catalog %s already registered", name)
	}
	if len(catalog.Languages()) == 0 {
		return fmt.Errorf("catalog %s must support at least one language", name)
	}

	r.catalogs[name] = catalog
	r.priorities[name] = priority
	return nil
}

// Get returns a catalog by name
func (r *Registry) Get(name string) (Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog, exists := r.catalogs[name]
	return catalog, exists
}

// List returns all registered catalog names, highest priority first
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.catalogs))
	for name := range r.catalogs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := r.priorities[names[i]], r.priorities[names[j]]
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	return names
}

// Select returns the preferred catalog, or the highest priority one when
// preferred is not registered.
func (r *Registry) Select(preferred string) (Catalog, error) {
	if c, ok := r.Get(preferred); ok {
		return c, nil
	}
	names := r.List()
	if len(names) == 0 {
		return nil, ErrNoCatalog
	}
	c, _ := r.Get(names[0])
	return c, nil
}
