package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown document or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Knowledge Base Errors.

	// ErrIO indicates the knowledge base could not be read from or written to disk.
	// A failed write means the batch is not guaranteed durable.
	ErrIO = errors.New("knowledge base I/O failure")

	// ErrDimensionMismatch indicates a vector does not match the store's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyKnowledgeBase signals that the knowledge base holds no records.
	// It is a routing signal rather than a fault.
	ErrEmptyKnowledgeBase = errors.New("knowledge base is empty")

	// Routing Errors.

	// ErrClassification indicates the router returned a malformed decision.
	ErrClassification = errors.New("malformed routing decision")

	// ErrExtraction indicates a page yielded too little text to answer from.
	ErrExtraction = errors.New("page extraction failed")

	// ErrNetwork indicates a timeout or connection failure on an outbound call.
	ErrNetwork = errors.New("network failure")

	// ErrSessionClosed indicates an operation on a closed conversation session.
	ErrSessionClosed = errors.New("conversation session closed")

	// AI Errors.

	// ErrLLMUnavailable indicates the chat model is not configured or not reachable.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
