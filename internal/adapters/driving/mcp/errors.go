// Package mcp provides an MCP (Model Context Protocol) server adapter for parley.
// It lets AI assistants ask routed questions and search the local knowledge base.
package mcp

import "errors"

// ErrMissingOrchestrator is returned when the orchestrator is not provided.
var ErrMissingOrchestrator = errors.New("mcp: orchestrator is required")
