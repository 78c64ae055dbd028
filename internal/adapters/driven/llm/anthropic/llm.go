// Package anthropic answers chat requests with the Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults applied by NewLLMService.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-haiku-latest"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	APIKey  string // required
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /v1/messages without streaming.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required: %w", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// buildRequest adapts a conversation to the messages API: system messages
// move to the system field, the first message must come from the user and
// consecutive messages from one role are merged so roles alternate.
func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions) (messagesRequest, error) {
	req := messagesRequest{
		Model:       s.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var system []string
	for _, m := range messages {
		switch {
		case m.Role == string(domain.RoleSystem):
			system = append(system, m.Content)
		case len(req.Messages) == 0 && m.Role != string(domain.RoleUser):
			// the API rejects a leading assistant turn
		case len(req.Messages) > 0 && req.Messages[len(req.Messages)-1].Role == m.Role:
			last := &req.Messages[len(req.Messages)-1]
			last.Content += "\n\n" + m.Content
		default:
			req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
		}
	}
	req.System = strings.Join(system, "\n\n")

	if len(req.Messages) == 0 {
		return req, fmt.Errorf("anthropic: no user message to send: %w", domain.ErrInvalidInput)
	}
	return req, nil
}

// Chat sends the conversation and joins the reply's text blocks.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	reqBody, err := s.buildRequest(messages, opts)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := s.do(req)
	if err != nil {
		return "", err
	}

	var resp messagesResponse
	decodeErr := json.Unmarshal(body, &resp)
	switch {
	case decodeErr == nil && resp.Error != nil:
		return "", fmt.Errorf("anthropic error (%s): %s: %w", resp.Error.Type, resp.Error.Message, domain.ErrLLMUnavailable)
	case status != http.StatusOK:
		return "", fmt.Errorf("anthropic error (status %d): %w", status, domain.ErrLLMUnavailable)
	case decodeErr != nil:
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: reply has no text (stop reason %q): %w", resp.StopReason, domain.ErrLLMUnavailable)
	}
	return text.String(), nil
}

func (s *LLMService) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("anthropic: send request: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("anthropic: read response: %w: %v", domain.ErrNetwork, err)
	}
	return body, resp.StatusCode, nil
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: create ping request: %w", err)
	}
	body, status, err := s.do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("anthropic: API returned status %d: %s", status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close releases idle connections.
func (s *LLMService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
