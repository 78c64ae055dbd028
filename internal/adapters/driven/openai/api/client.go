// Package api is the HTTP client shared by the OpenAI-compatible chat and
// embedding adapters. It works against OpenAI itself and against local
// servers such as llama.cpp that speak the same protocol.
package api

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
)

// maxErrorBody caps how much of an error response is quoted.
const maxErrorBody = 512

// Client sends JSON requests with an optional bearer token.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// New creates a client for baseURL. An empty apiKey sends no
// Authorization header, which local servers accept.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.http.Timeout }

// Post sends in as JSON to path and returns the raw response body. A
// non-200 status or an {"error": ...} envelope is wrapped in unavailable;
// transport failures wrap domain.ErrNetwork.
func (c *Client) Post(ctx context.Context, path string, in any, unavailable error) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openai error (status %d): %s: %w", status, quote(body), unavailable)
	}
	if msg := envelopeError(body); msg != "" {
		return nil, fmt.Errorf("openai error: %s: %w", msg, unavailable)
	}
	return body, nil
}

// Ping issues a GET on path and expects 200.
func (c *Client) Ping(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	body, status, err := c.do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("openai: API returned status %d: %s", status, quote(body))
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: send request: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("openai: read response: %w: %v", domain.ErrNetwork, err)
	}
	return body, resp.StatusCode, nil
}

// envelopeError returns the message of an {"error": {"message": ...}}
// body, or "" for anything else.
func envelopeError(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var env struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(trimmed, &env) != nil || env.Error == nil {
		return ""
	}
	if env.Error.Message == "" {
		return "unspecified error"
	}
	return env.Error.Message
}

func quote(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
