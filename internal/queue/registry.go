package queue

import (
	"fmt"
	"sort"
	"sync"
)

type Definition struct {
	Name    string
	Handler Handler
	Policy  RetryPolicy
}

// Registry maps task names to their handler and retry policy.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]Definition
}

func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

func (r *Registry) Register(name string, handler Handler, policy RetryPolicy) error {
	if name == "" {
		return fmt.Errorf("task name is required")
	}
	if handler == nil {
		return fmt.Errorf("task %s: handler is required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[name]; exists {
		return fmt.Errorf("task %s already registered", name)
	}
	r.definitions[name] = Definition{Name: name, Handler: handler, Policy: policy}
	return nil
}

func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
