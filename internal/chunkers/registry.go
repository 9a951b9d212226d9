// Package chunkers provides the chunker registry and built-in strategies.
package chunkers

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driven"
)

// BuilderFunc creates a Chunker from chunker settings.
// The embedding service is available to strategies that need it.
type BuilderFunc func(settings domain.ChunkerSettings, embedder driven.EmbeddingService) (driven.Chunker, error)

// Registry maps chunker names to their builders.
// It allows the strategy to be selected from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new chunker registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a chunker builder to the registry.
// Name should be unique and match the chunker's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a chunker by name with the given settings.
func (r *Registry) Build(name string, settings domain.ChunkerSettings, embedder driven.EmbeddingService) (driven.Chunker, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("chunker %q: %w", name, domain.ErrUnsupportedType)
	}
	return builder(settings, embedder)
}

// Has returns true if a chunker with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered chunker names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
