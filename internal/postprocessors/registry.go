package postprocessors

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from the per-processor map of a
// domain.PipelineConfig. A nil map means defaults.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to builders so a persona's pipeline can be
// assembled from names alone.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds a builder under name, which should match the processor's
// Name(). It panics on an empty name, a nil builder or a duplicate, since
// registration happens once at startup.
func (r *Registry) Register(name string, builder BuilderFunc) {
	switch {
	case name == "" || builder == nil:
		panic("postprocessors: Register needs a name and a builder")
	case r.Has(name):
		panic("postprocessors: Register called twice for " + name)
	}
	r.builders[name] = builder
}

// Build creates the named processor. Unknown names yield ErrUnsupportedType.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %s", domain.ErrUnsupportedType, name)
	}
	return builder(cfg)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.builders)
	slices.Sort(names)
	return names
}
