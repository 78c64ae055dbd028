// Package openai answers chat requests through an OpenAI-compatible
// /chat/completions endpoint, such as llama.cpp's server.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/parley/internal/adapters/driven/openai/api"
	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
	"github.com/custodia-labs/parley/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults target a local llama.cpp server.
const (
	DefaultBaseURL    = "http://127.0.0.1:8080/v1"
	DefaultLLMModel   = "gemma-3-4b-it-GGUF"
	DefaultLLMTimeout = 30 * time.Second
)

// LLMConfig holds configuration for the OpenAI-compatible LLM service.
type LLMConfig struct {
	APIKey  string // optional for local servers
	BaseURL string // including the /v1 suffix
	Model   string
	Timeout time.Duration
}

// LLMService sends non-streaming chat completions.
type LLMService struct {
	client *api.Client
	model  string
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates a new OpenAI-compatible LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client: api.New(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		model:  cfg.Model,
	}, nil
}

// Chat sends the conversation and returns the first choice's text. A reply
// cut short by the token limit is returned as is.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := completionRequest{
		Model:       s.model,
		Messages:    make([]message, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for i, m := range messages {
		req.Messages[i] = message{Role: m.Role, Content: m.Content}
	}

	body, err := s.client.Post(ctx, "/chat/completions", req, domain.ErrLLMUnavailable)
	if err != nil {
		return "", err
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned by %s: %w", s.model, domain.ErrLLMUnavailable)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		logger.Debug("Reply from %s hit the token limit", s.model)
	}
	return choice.Message.Content, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which runs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, "/models")
}

// Close releases idle connections.
func (s *LLMService) Close() error {
	s.client.Close()
	return nil
}
