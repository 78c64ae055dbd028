// Package tui provides an interactive terminal chat for parley.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/parley/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Orchestrator answers each chat message.
	Orchestrator driving.Orchestrator

	// Knowledge reports knowledge-base totals in the status bar. Optional.
	Knowledge driving.KnowledgeService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(orchestrator driving.Orchestrator, knowledge driving.KnowledgeService) *Ports {
	return &Ports{
		Orchestrator: orchestrator,
		Knowledge:    knowledge,
	}
}

// Validate ensures all required ports are set.
// Returns an error if any port is nil.
func (p *Ports) Validate() error {
	if p.Orchestrator == nil {
		return ErrMissingOrchestrator
	}
	return nil
}
