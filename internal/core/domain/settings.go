package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or chat.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is any OpenAI-compatible server (OpenAI, llama.cpp, vLLM).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider always needs an API key.
// OpenAI-compatible servers are often local and keyless.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderAnthropic
}

// SupportsEmbeddings returns true if the provider exposes an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOpenAI || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (llama.cpp, OpenAI)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// LLMSettings holds chat model configuration.
type LLMSettings struct {
	// Provider is the chat service provider.
	Provider AIProvider

	// BaseURL is the API endpoint.
	BaseURL string

	// Model is the chat model name.
	Model string

	// APIKey is optional for local servers.
	APIKey string
}

// IsConfigured returns true if the chat provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	return !l.Provider.RequiresAPIKey() || l.APIKey != ""
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// BaseURL is the API endpoint.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// APIKey is optional for local servers.
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.IsValid() && e.Provider.SupportsEmbeddings()
}

// KnowledgeSettings holds knowledge-base configuration.
type KnowledgeSettings struct {
	// Path is the knowledge-base blob location.
	Path string

	// TopK is the number of chunks retrieved per query.
	TopK int

	// ChunkWords is the word window used when chunking documents.
	ChunkWords int
}

// Supported web search engines.
const (
	SearchEngineDuckDuckGo = "duckduckgo"
	SearchEngineBing       = "bing"
)

// IsKnownSearchEngine reports whether name is a supported engine.
func IsKnownSearchEngine(name string) bool {
	return name == SearchEngineDuckDuckGo || name == SearchEngineBing
}

// SearchSettings holds web search configuration.
type SearchSettings struct {
	// Engine is the search engine name.
	Engine string

	// NumResults is the number of results requested per query.
	NumResults int

	// NumExtract is the number of result pages read per query.
	NumExtract int

	// RequestsPerSecond limits outbound engine queries.
	RequestsPerSecond float64
}

// ScrapingSettings holds page extraction configuration.
type ScrapingSettings struct {
	// AllowedDomain is the only host the extraction branch may fetch.
	AllowedDomain string

	// MaxChars bounds the extracted text.
	MaxChars int
}

// AppSettings holds all application settings.
type AppSettings struct {
	LLM       LLMSettings
	Embedding EmbeddingSettings
	Knowledge KnowledgeSettings
	Search    SearchSettings
	Scraping  ScrapingSettings

	// MaxTurns bounds the rolling conversation history.
	MaxTurns int

	// HTTPTimeout applies to every outbound request.
	HTTPTimeout time.Duration

	// TranscriptEnabled records completed turns to the transcript store.
	TranscriptEnabled bool
}

// DefaultAppSettings returns settings for local llama.cpp servers.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			BaseURL:  "http://127.0.0.1:8080/v1",
			Model:    "gemma-3-4b-it-GGUF",
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			BaseURL:  "http://127.0.0.1:8081",
			Model:    "Qwen3-Embedding-0.6B-GGUF",
		},
		Knowledge: KnowledgeSettings{
			Path:       "", // resolved against the config directory
			TopK:       5,
			ChunkWords: 200,
		},
		Search: SearchSettings{
			Engine:            SearchEngineDuckDuckGo,
			NumResults:        5,
			NumExtract:        3,
			RequestsPerSecond: 1,
		},
		Scraping: ScrapingSettings{
			AllowedDomain: "fr.wikipedia.org",
			MaxChars:      5000,
		},
		MaxTurns:          DefaultMaxTurns,
		HTTPTimeout:       30 * time.Second,
		TranscriptEnabled: true,
	}
}

// AllLLMProviders returns providers that support chat.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderAnthropic,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
	}
}
