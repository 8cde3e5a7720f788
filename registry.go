package luamachine

import (
	"sort"
	"sync"
)

// Registry is a map-backed ComponentRegistry safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{components: make(map[string]Component)}
}

// Add attaches a component, replacing any previous one at the same address.
func (r *Registry) Add(c Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[c.Address()] = c
}

// Remove detaches the component at address, reporting whether it was present.
func (r *Registry) Remove(address string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[address]; !ok {
		return false
	}
	delete(r.components, address)
	return true
}

// Get returns the component at address.
func (r *Registry) Get(address string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[address]
	return c, ok
}

// List returns all attached components ordered by address.
func (r *Registry) List() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address() < list[j].Address() })
	return list
}

// Count returns the number of attached components.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}
