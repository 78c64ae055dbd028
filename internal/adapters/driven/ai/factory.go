// Package ai builds the chat and embedding adapters named in settings.
package ai

import (
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/parley/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/parley/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/parley/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/parley/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/parley/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// endpoint is the provider-independent part of LLM and embedding settings.
type endpoint struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
}

type (
	llmBuilder   func(endpoint) (driven.LLMService, error)
	embedBuilder func(endpoint) (driven.EmbeddingService, error)
)

var llmBuilders = map[domain.AIProvider]llmBuilder{
	domain.AIProviderOllama: func(e endpoint) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: e.baseURL, Model: e.model, Timeout: e.timeout}), nil
	},
	domain.AIProviderOpenAI: func(e endpoint) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey: e.apiKey, BaseURL: e.baseURL, Model: e.model, Timeout: e.timeout,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(e endpoint) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey: e.apiKey, BaseURL: e.baseURL, Model: e.model, Timeout: e.timeout,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

var embedBuilders = map[domain.AIProvider]embedBuilder{
	domain.AIProviderOllama: func(e endpoint) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{BaseURL: e.baseURL, Model: e.model, Timeout: e.timeout}), nil
	},
	domain.AIProviderOpenAI: func(e endpoint) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: e.apiKey, BaseURL: e.baseURL, Model: e.model, Timeout: e.timeout,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// Models holds the adapters built by Init.
type Models struct {
	LLM      driven.LLMService
	Embedder driven.EmbeddingService

	// Warnings are problems that disabled an optional service.
	Warnings []string
}

// Close releases both adapters.
func (m *Models) Close() error {
	var errs []error
	if m.Embedder != nil {
		errs = append(errs, m.Embedder.Close())
	}
	if m.LLM != nil {
		errs = append(errs, m.LLM.Close())
	}
	return errors.Join(errs...)
}

// Init builds both adapters without contacting them; a local server may
// start after the CLI does. A missing chat provider is an error. A
// missing or broken embedding provider only disables the knowledge base.
func Init(settings *domain.AppSettings) (*Models, error) {
	llm, err := CreateLLMService(&settings.LLM, settings.HTTPTimeout)
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	case llm == nil:
		return nil, fmt.Errorf("%w: no chat provider configured, run 'parley settings set llm.provider openai'",
			domain.ErrLLMUnavailable)
	}

	models := &Models{LLM: llm}
	embedder, err := CreateEmbeddingService(&settings.Embedding, settings.HTTPTimeout)
	switch {
	case err != nil:
		models.Warnings = append(models.Warnings, fmt.Sprintf("embeddings disabled: %v", err))
	case embedder == nil:
		models.Warnings = append(models.Warnings, "embeddings disabled: no embedding provider configured")
	default:
		models.Embedder = NewRetryingEmbedder(embedder, DefaultRetryConfig())
	}
	return models, nil
}

// CreateEmbeddingService returns nil, nil when settings leave embeddings
// unconfigured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, timeout time.Duration) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, nil
	}
	if settings.Provider.IsValid() && !settings.Provider.SupportsEmbeddings() {
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)
	}
	if !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := embedBuilders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	return build(endpoint{settings.APIKey, settings.BaseURL, settings.Model, timeout})
}

// CreateLLMService returns nil, nil when settings leave chat unconfigured.
func CreateLLMService(settings *domain.LLMSettings, timeout time.Duration) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := llmBuilders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
	return build(endpoint{settings.APIKey, settings.BaseURL, settings.Model, timeout})
}
