package mcp

import (
	"github.com/custodia-labs/parley/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Orchestrator answers routed questions.
	Orchestrator driving.Orchestrator

	// Knowledge exposes the knowledge base. Optional: without it the
	// knowledge_search tool and the stats resource report an empty base.
	Knowledge driving.KnowledgeService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Orchestrator == nil {
		return ErrMissingOrchestrator
	}
	return nil
}
