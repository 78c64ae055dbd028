// Package postprocessors turns normalised document text into chunk texts.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order over one document's text.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline chains processors in the order given.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Process runs text through every processor. The first processor receives
// nil chunks and creates them; later ones may rewrite them. Blank chunks
// are dropped from the result.
func (p *Pipeline) Process(ctx context.Context, text string) ([]string, error) {
	var chunks []string
	for _, proc := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		chunks, err = proc.Process(ctx, text, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", proc.Name(), err)
		}
	}

	if chunks == nil {
		return nil, nil
	}
	kept := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
