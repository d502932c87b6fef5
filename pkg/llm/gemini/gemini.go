// Package gemini provides a reasoning provider backed by the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/synapse/pkg/llm"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

const providerName = "gemini"

// Provider implements llm.Provider on top of genai's GenerateContent.
type Provider struct {
	client      *genai.Client
	model       string
	temperature *float32
}

// Option configures a Provider.
type Option func(*options)

type options struct {
	model       string
	baseURL     string
	temperature *float32
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) {
		v := float32(t)
		o.temperature = &v
	}
}

// NewProvider creates a Gemini provider. An empty apiKey falls back to
// GOOGLE_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required (provide via parameter or GOOGLE_API_KEY environment variable): %w", llm.ErrAuth)
	}

	o := options{model: DefaultModel}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if o.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Provider{client: client, model: o.model, temperature: o.temperature}, nil
}

// Invoke generates a response for user under the given system instruction.
func (p *Provider) Invoke(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: p.temperature}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", classify(ctx, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Model returns the model name being used.
func (p *Provider) Model() string {
	return p.model
}

func classify(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.StatusError(providerName, apiErr.Code, apiErr.Message)
	}
	return llm.TransportError(ctx, providerName, err)
}
