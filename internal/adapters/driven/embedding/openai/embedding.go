// Package openai provides an embedding service adapter for OpenAI-compatible
// embedding servers, including llama.cpp's native /embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/parley/internal/adapters/driven/openai/api"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values. The defaults target a local llama.cpp
// embedding server.
const (
	DefaultBaseURL = "http://127.0.0.1:8081"
	DefaultModel   = "Qwen3-Embedding-0.6B-GGUF"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the embedding service.
type Config struct {
	// APIKey is sent as a bearer token when set.
	APIKey string

	// BaseURL is the API base URL. /embeddings is appended to it.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the expected vector size. When zero it is learned from
	// the first response.
	Dimensions int
}

// EmbeddingService generates embeddings over HTTP.
type EmbeddingService struct {
	client     *api.Client
	model      string
	dimensions atomic.Int64
}

// embeddingRequest carries the text under both the OpenAI "input" key and
// llama.cpp's "content" key so either server flavour accepts it.
type embeddingRequest struct {
	Model   string `json:"model"`
	Input   string `json:"input"`
	Content string `json:"content"`
}

// openAIResponse is the OpenAI /embeddings response format.
type openAIResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// llamaItem is one element of llama.cpp's native response. The embedding is
// either a flat vector or one vector per token when pooling is disabled.
type llamaItem struct {
	Index     int             `json:"index"`
	Embedding json.RawMessage `json:"embedding"`
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions < 0 {
		return nil, fmt.Errorf("openai: negative dimensions: %w", domain.ErrInvalidInput)
	}

	s := &EmbeddingService{
		client: api.New(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		model:  cfg.Model,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{Model: s.model, Input: text, Content: text}
	body, err := s.client.Post(ctx, "/embeddings", req, domain.ErrEmbeddingUnavailable)
	if err != nil {
		return nil, err
	}

	vector, err := decodeEmbedding(body)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("openai: empty embedding returned: %w", domain.ErrEmbeddingUnavailable)
	}

	s.dimensions.CompareAndSwap(0, int64(len(vector)))
	if want := int(s.dimensions.Load()); want != len(vector) {
		return nil, fmt.Errorf("openai: got %d dimensions, want %d: %w", len(vector), want, domain.ErrDimensionMismatch)
	}
	return vector, nil
}

// decodeEmbedding accepts the OpenAI object shape and llama.cpp's array shape.
func decodeEmbedding(body []byte) ([]float32, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []llamaItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("openai: no embedding returned: %w", domain.ErrEmbeddingUnavailable)
		}
		return decodeVector(items[0].Embedding)
	}

	var resp openAIResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned: %w", domain.ErrEmbeddingUnavailable)
	}
	return toFloat32(resp.Data[0].Embedding), nil
}

// decodeVector reads a flat vector, or the first row of a per-token matrix.
func decodeVector(raw json.RawMessage) ([]float32, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return toFloat32(flat), nil
	}
	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(nested) == 0 {
		return nil, nil
	}
	return toFloat32(nested[0]), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// EmbedBatch embeds each text in order. llama.cpp's native endpoint takes a
// single content string per call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size, or 0 before the first call.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service by embedding a short probe string. llama.cpp
// does not serve /models on its embedding port, so a real request is the
// only reliable check.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (s *EmbeddingService) Close() error {
	s.client.Close()
	return nil
}
