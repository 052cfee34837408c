package module

import (
	"fmt"
	"sort"
)

// factoryRegistry maintains the factories registered by Declare.
type factoryRegistry struct {
	factories map[string]Factory
}

func newFactoryRegistry() *factoryRegistry {
	return &factoryRegistry{factories: map[string]Factory{}}
}

// register installs a factory. Returns an error if the id already has one.
func (r *factoryRegistry) register(id string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("module: factory is required for %q", id)
	}
	if _, exists := r.factories[id]; exists {
		return newError(KindDuplicateModule, id, nil)
	}
	r.factories[id] = factory
	return nil
}

func (r *factoryRegistry) lookup(id string) (Factory, bool) {
	factory, ok := r.factories[id]
	return factory, ok
}

func (r *factoryRegistry) has(id string) bool {
	_, ok := r.factories[id]
	return ok
}

// ids returns a sorted list of ids with a registered factory.
func (r *factoryRegistry) ids() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
