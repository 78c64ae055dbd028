// Package services implements the driving ports. The Orchestrator routes
// each turn to RetrievalService, WebSearchService, PageExtractionService or
// the model directly; KnowledgeService feeds the vector store.
package services
