package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/entrhq/synapse/pkg/llm"
)

// OllamaEngine generates embeddings using a local Ollama server.
type OllamaEngine struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEngine creates a new Ollama embedding engine. dimensions must
// match the model's output; zero means 768 (embeddinggemma).
func NewOllamaEngine(endpoint, model string, dimensions int) *OllamaEngine {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "embeddinggemma"
	}
	if dimensions <= 0 {
		dimensions = 768
	}

	return &OllamaEngine{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, llm.TransportError(ctx, e.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, llm.StatusError(e.Name(), resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(result.Embedding) != e.dimensions {
		return nil, fmt.Errorf("%w: %s returned %d values, want %d", ErrDimensionMismatch, e.Name(), len(result.Embedding), e.dimensions)
	}

	return result.Embedding, nil
}

// EmbedBatch calls Embed sequentially; Ollama has no batch endpoint.
func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the dimensionality of embeddings.
func (e *OllamaEngine) Dimensions() int { return e.dimensions }

// Name returns the engine name.
func (e *OllamaEngine) Name() string {
	return fmt.Sprintf("ollama:%s", e.model)
}
