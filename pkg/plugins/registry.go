package plugins

import (
	"fmt"
	"sync"
)

// Factory constructs a Transformer from a descriptor.
type Factory func(d Descriptor) (Transformer, error)

// Registry maps plugin kinds to factories. The built-in kinds are
// registered by NewRegistry; additional kinds can be registered before
// pipelines are built.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]Factory
}

// NewRegistry creates a registry with the built-in plugin kinds.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[Kind]Factory),
	}

	r.factories[KindAsset] = func(d Descriptor) (Transformer, error) {
		return newAssetTransformer(d.Name, d.Asset)
	}
	r.factories[KindFramework] = func(d Descriptor) (Transformer, error) {
		return newFrameworkTransformer(d.Name, d.Framework)
	}

	return r
}

// Register adds a factory for a plugin kind.
func (r *Registry) Register(kind Kind, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("plugin kind %s already registered", kind)
	}

	r.factories[kind] = factory
	return nil
}

// Build constructs a single transformer from a descriptor.
func (r *Registry) Build(d Descriptor) (Transformer, error) {
	r.mu.RLock()
	factory, exists := r.factories[d.Kind]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown plugin kind %s", d.Kind)
	}

	return factory(d)
}

// BuildPipeline constructs a pipeline from descriptors, preserving the
// declared order exactly.
func (r *Registry) BuildPipeline(descriptors []Descriptor) (*Pipeline, error) {
	transformers := make([]Transformer, 0, len(descriptors))
	for i, d := range descriptors {
		t, err := r.Build(d)
		if err != nil {
			return nil, fmt.Errorf("plugin %d (%s): %w", i, d, err)
		}
		transformers = append(transformers, t)
	}

	return NewPipeline(transformers), nil
}
