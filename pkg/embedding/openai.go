package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/entrhq/synapse/pkg/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEngine generates embeddings through the OpenAI embeddings API or any
// compatible endpoint.
type OpenAIEngine struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAIEngine creates an OpenAI embedding engine. An empty baseURL uses
// the public API. dimensions zero means 1536 (text-embedding-3-small).
func NewOpenAIEngine(apiKey, baseURL, model string, dimensions int) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: OpenAI API key is required: %w", llm.ErrAuth)
	}
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	if dimensions <= 0 {
		dimensions = 1536
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIEngine{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          e.model,
		Dimensions:     openai.Int(int64(e.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, llm.StatusError(e.Name(), apiErr.StatusCode, apiErr.Message)
		}
		return nil, llm.TransportError(ctx, e.Name(), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: %s returned %d embeddings for %d texts", e.Name(), len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		if len(d.Embedding) != e.dimensions {
			return nil, fmt.Errorf("%w: %s returned %d values, want %d", ErrDimensionMismatch, e.Name(), len(d.Embedding), e.dimensions)
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the dimensionality of embeddings.
func (e *OpenAIEngine) Dimensions() int { return e.dimensions }

// Name returns the engine name.
func (e *OpenAIEngine) Name() string {
	return fmt.Sprintf("openai:%s", e.model)
}
