// Package ollama provides a reasoning provider for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/synapse/pkg/llm"
	"github.com/entrhq/synapse/pkg/types"
)

const (
	// DefaultEndpoint is where a local Ollama server listens.
	DefaultEndpoint = "http://localhost:11434"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3"

	providerName = "ollama"
)

// Provider calls Ollama's /api/chat endpoint without streaming.
type Provider struct {
	endpoint    string
	model       string
	temperature *float64
	client      *http.Client
}

// Option configures a Provider.
type Option func(*Provider)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) {
		p.temperature = &t
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewProvider creates an Ollama provider. An empty endpoint falls back to
// OLLAMA_HOST and then DefaultEndpoint.
func NewProvider(endpoint string, opts ...Option) *Provider {
	if endpoint == "" {
		endpoint = os.Getenv("OLLAMA_HOST")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	p := &Provider{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    DefaultModel,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

// Complete sends messages to /api/chat and returns the assistant reply.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	req := chatRequest{Model: p.model}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if p.temperature != nil {
		req.Options = map[string]any{"temperature": *p.temperature}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError(ctx, providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, llm.StatusError(providerName, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, llm.TransportError(ctx, providerName, fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return nil, &llm.ProviderError{Kind: llm.ErrProviderUnavailable, Provider: providerName, Message: out.Error}
	}

	return types.NewAssistantMessage(out.Message.Content), nil
}

// Invoke sends a system + user prompt and returns the response text.
func (p *Provider) Invoke(ctx context.Context, system, user string) (string, error) {
	msg, err := p.Complete(ctx, types.Prompt(system, user))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(msg.Content), nil
}

// Model returns the model name being used.
func (p *Provider) Model() string {
	return p.model
}

// Endpoint returns the server address.
func (p *Provider) Endpoint() string {
	return p.endpoint
}
