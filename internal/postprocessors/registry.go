package postprocessors

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// ErrUnknownProcessor is returned when a pipeline names an unregistered processor.
var ErrUnknownProcessor = errors.New("unknown processor")

// Builder creates a processor from the knowledge-base settings.
type Builder func(cfg domain.KnowledgeSettings) (driven.PostProcessor, error)

// Registry maps processor names to builders so ingestion pipelines can be
// assembled by name.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under name. A name can only be registered once.
func (r *Registry) Register(name string, builder Builder) error {
	if name == "" || builder == nil {
		return fmt.Errorf("%w: processor needs a name and a builder", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("%w: processor %q already registered", domain.ErrInvalidInput, name)
	}
	r.builders[name] = builder
	return nil
}

// Build creates the named processor.
func (r *Registry) Build(name string, cfg domain.KnowledgeSettings) (driven.PostProcessor, error) {
	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProcessor, name)
	}

	proc, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}
	return proc, nil
}

// Pipeline builds the named processors and chains them in the given order.
func (r *Registry) Pipeline(cfg domain.KnowledgeSettings, names ...string) (*Pipeline, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: pipeline needs at least one processor", domain.ErrInvalidInput)
	}

	procs := make([]driven.PostProcessor, 0, len(names))
	for _, name := range names {
		proc, err := r.Build(name, cfg)
		if err != nil {
			return nil, err
		}
		procs = append(procs, proc)
	}
	return NewPipeline(procs...), nil
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
