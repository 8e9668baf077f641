package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/NWeiss87/auricle/internal/analysis"
)

// ErrModelNotRegistered is returned by [Registry.Create] when no factory has
// been registered for the requested model type.
var ErrModelNotRegistered = errors.New("config: model type not registered")

// RunnerFactory builds the analysis runner for one configured model. The
// wiring layer registers factories as closures over the shared assets a
// runner needs (inference clients, label lists, question lists, the
// idiolect lexicon).
type RunnerFactory func(ModelConfig) (analysis.Runner, error)

// Registry maps model types to their runner factories. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	runners map[ModelType]RunnerFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{runners: make(map[ModelType]RunnerFactory)}
}

// Register registers a runner factory for t. Subsequent calls with the same
// type overwrite the previous registration.
func (r *Registry) Register(t ModelType, factory RunnerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[t] = factory
}

// Create instantiates the runner for m using the factory registered under
// m.ModelType. Returns [ErrModelNotRegistered] if no factory has been
// registered for that type.
func (r *Registry) Create(m ModelConfig) (analysis.Runner, error) {
	r.mu.RLock()
	factory, ok := r.runners[m.ModelType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%q", ErrModelNotRegistered, m.ModelType, m.ModelName)
	}
	return factory(m)
}

// Types returns the registered model types in sorted order.
func (r *Registry) Types() []ModelType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]ModelType, 0, len(r.runners))
	for t := range r.runners {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
