// Package driven holds the interfaces the core calls out through.
//
// An answer needs an LLMService. Retrieval also needs an EmbeddingService
// and a VectorStore; the INTERNET path needs at least one SearchEngine and
// the SCRAPING path a PageExtractor. PromptStore, TranscriptStore and
// DocumentSource may be nil, in which case built-in prompts are used, turns
// are not recorded and attachments are refused.
//
// This package imports only domain.
package driven
