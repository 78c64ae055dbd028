// Package driving defines what the CLI, the TUI and the MCP server call
// into: OrchestratorService answers questions, KnowledgeService manages the
// vector store, SettingsService edits configuration and TranscriptService
// reads recorded turns.
//
// Implementations live in internal/core/services.
package driving
