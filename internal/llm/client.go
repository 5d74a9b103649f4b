// Package llm implements a chat-completions client for OpenWebUI and
// OpenAI-compatible endpoints. Providers expose the API at several
// conventional paths, so each call walks an ordered candidate list.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpointPaths are tried in order against the endpoint base URL.
var DefaultEndpointPaths = []string{
	"/api/chat/completions", // OpenWebUI standard
	"/v1/chat/completions",  // OpenAI compatible
	"/api/v1/chat/completions",
	"/chat/completions",
	"/api/chat", // older Ollama-style servers
}

// ErrAllPathsExhausted is returned when every candidate endpoint path failed.
var ErrAllPathsExhausted = errors.New("all endpoint paths exhausted")

// Endpoint fully describes one LLM backend for a single request. It is
// supplied by the caller per request, never held as server state.
type Endpoint struct {
	BaseURL  string
	APIKey   string
	Model    string
	Provider string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Message *Message `json:"message"`
}

// Config holds client construction parameters.
type Config struct {
	RequestTimeout time.Duration
	EndpointPaths  []string
}

type Client struct {
	httpClient *http.Client
	paths      []string
	logger     *slog.Logger
}

func NewClient(cfg *Config, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	paths := cfg.EndpointPaths
	if len(paths) == 0 {
		paths = DefaultEndpointPaths
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		paths:      paths,
		logger:     logger,
	}
}

// candidateURLs builds the ordered URL list for one endpoint. A base URL that
// already names a chat path is tried first, as-is.
func (c *Client) candidateURLs(baseURL string) []string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	urls := make([]string, 0, len(c.paths)+1)
	if strings.Contains(base, "chat/completions") || strings.HasSuffix(base, "/chat") {
		urls = append(urls, base)
	}
	for _, path := range c.paths {
		urls = append(urls, base+path)
	}
	return urls
}

// Complete sends one system+user message pair and returns the generated text.
// Transport failures and rejected paths (404/405 and other non-2xx statuses)
// move on to the next candidate; when every candidate fails the call returns
// ErrAllPathsExhausted wrapping the last failure.
func (c *Client) Complete(ctx context.Context, ep Endpoint, systemPrompt, userPrompt string, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: ep.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	var lastErr error
	for _, target := range c.candidateURLs(ep.BaseURL) {
		text, err := c.post(ctx, target, ep.APIKey, body)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("chat request aborted: %w", ctx.Err())
		}

		lastErr = err
		c.logger.Debug("Chat endpoint path failed",
			slog.String("url", target),
			slog.String("model", ep.Model),
			slog.String("error", err.Error()),
		)
	}

	return "", fmt.Errorf("%w (last error: %v)", ErrAllPathsExhausted, lastErr)
}

func (c *Client) post(ctx context.Context, url, apiKey string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Choices) > 0 {
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}
	if parsed.Message != nil {
		return strings.TrimSpace(parsed.Message.Content), nil
	}

	return "", fmt.Errorf("unexpected response format")
}
