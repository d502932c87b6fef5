package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/synapse/pkg/llm"
	"google.golang.org/genai"
)

// GenAIEngine generates embeddings using Google's Gemini API.
type GenAIEngine struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
}

// NewGenAIEngine creates a new GenAI embedding engine. dimensions zero means
// 768 (gemini-embedding-001 truncated output).
func NewGenAIEngine(ctx context.Context, apiKey, model string, dimensions int) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: GenAI API key is required: %w", llm.ErrAuth)
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dimensions <= 0 {
		dimensions = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: create GenAI client: %w", err)
	}

	return &GenAIEngine{
		client:     client,
		model:      model,
		dimensions: dimensions,
		taskType:   "SEMANTIC_SIMILARITY",
	}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(e.dimensions)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, llm.StatusError(e.Name(), apiErr.Code, apiErr.Message)
		}
		return nil, llm.TransportError(ctx, e.Name(), err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding: %s returned %d embeddings for %d texts", e.Name(), len(result.Embeddings), len(texts))
	}

	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *GenAIEngine) Dimensions() int { return e.dimensions }

// Name returns the engine name.
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
