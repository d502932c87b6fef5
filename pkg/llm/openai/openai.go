// Package openai provides an OpenAI-compatible reasoning provider.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	stream, err := provider.StreamCompletion(ctx, types.Prompt("Be brief.", "Hello!"))
//	if err != nil {
//	    panic(err)
//	}
//	for chunk := range stream {
//	    fmt.Print(chunk.Content)
//	}
package openai

import (
	"bufio"
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
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	providerName = "openai"
)

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature *float64
	modelInfo   *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
// This enables using Azure OpenAI, local models, or other compatible services.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = &t
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it will attempt to read from the OPENAI_API_KEY environment variable.
// If baseURL is not provided via WithBaseURL option, it will check OPENAI_BASE_URL environment variable.
//
// Example:
//
//	// Standard OpenAI
//	provider, _ := openai.NewProvider("sk-...", openai.WithModel("gpt-4o"))
//
//	// Local OpenAI-compatible API
//	provider, _ := openai.NewProvider("local",
//	    openai.WithBaseURL("http://localhost:8080/v1"))
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required (provide via parameter or OPENAI_API_KEY environment variable): %w", llm.ErrAuth)
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	p.modelInfo = &types.ModelInfo{
		Provider:          providerName,
		Name:              p.model,
		SupportsStreaming: true,
		MaxTokens:         8192,
		Metadata:          make(map[string]interface{}),
	}
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// Invoke sends a system + user prompt and returns the full response text.
func (p *Provider) Invoke(ctx context.Context, system, user string) (string, error) {
	msg, err := p.Complete(ctx, types.Prompt(system, user))
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// StreamCompletion sends messages to the API and streams back response chunks.
//
// This implementation uses raw HTTP streaming to handle SSE events directly,
// which provides better compatibility with OpenAI-compatible APIs that may
// include SSE comments or have slight format variations.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.sendStreamRequest(ctx, messages)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// sendStreamRequest creates and sends the HTTP request for streaming
func (p *Provider) sendStreamRequest(ctx context.Context, messages []*types.Message) (*http.Response, error) {
	reqBody := map[string]interface{}{
		"model":    p.model,
		"messages": convertToOpenAIMessages(messages),
		"stream":   true,
	}
	if p.temperature != nil {
		reqBody["temperature"] = *p.temperature
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, llm.TransportError(ctx, providerName, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, llm.StatusError(providerName, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return resp, nil
}

// processStreamResponse processes the SSE stream and sends chunks to the channel
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	firstChunk := true

	for scanner.Scan() {
		line := scanner.Text()
		if !isValidSSELine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			p.send(ctx, &llm.StreamChunk{Finished: true}, chunks)
			return
		}

		if !p.processSSEChunk(ctx, data, &firstChunk, chunks) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		p.send(ctx, &llm.StreamChunk{Error: llm.TransportError(ctx, providerName, err)}, chunks)
	}
}

// isValidSSELine checks if a line is a valid SSE data line
func isValidSSELine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

// send delivers a chunk unless the context is done first.
func (p *Provider) send(ctx context.Context, chunk *llm.StreamChunk, chunks chan<- *llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		select {
		case chunks <- &llm.StreamChunk{Error: llm.TransportError(ctx, providerName, ctx.Err())}:
		default:
		}
		return false
	}
}

// processSSEChunk processes a single SSE data chunk
func (p *Provider) processSSEChunk(ctx context.Context, data string, firstChunk *bool, chunks chan<- *llm.StreamChunk) bool {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason"`
		} `json:"choices"`
	}

	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return true // Skip malformed chunks silently
	}
	if len(chunk.Choices) == 0 {
		return true
	}

	choice := chunk.Choices[0]
	out := &llm.StreamChunk{Content: choice.Delta.Content}
	if *firstChunk && choice.Delta.Role != "" {
		out.Role = choice.Delta.Role
		*firstChunk = false
	}
	if choice.FinishReason != nil && *choice.FinishReason == "stop" {
		out.Finished = true
	}

	if out.Content == "" && out.Role == "" && !out.Finished {
		return true
	}
	return p.send(ctx, out, chunks)
}

// Complete sends messages to the API and returns the full response.
//
// This is a convenience wrapper around StreamCompletion that accumulates
// all chunks into a single message.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	var role string
	var streamErr error

	for chunk := range stream {
		if chunk.IsError() {
			if streamErr == nil {
				streamErr = chunk.Error
			}
			continue
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		content.WriteString(chunk.Content)
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if err := ctx.Err(); err != nil {
		return nil, llm.TransportError(ctx, providerName, err)
	}

	if role == "" {
		role = string(types.RoleAssistant)
	}

	return &types.Message{
		Role:    types.MessageRole(role),
		Content: content.String(),
	}, nil
}

// Model returns the model name being used.
func (p *Provider) Model() string {
	return p.model
}

// ModelInfo returns information about the model being used.
func (p *Provider) ModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// BaseURL returns the base URL being used.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// convertToOpenAIMessages converts our Message format to OpenAI's ChatCompletionMessageParamUnion format.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
