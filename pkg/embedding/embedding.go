// Package embedding provides vector embedding generation for semantic search.
// Supports Ollama (local), Google GenAI and OpenAI (cloud), and a local
// hashing embedder that needs no service at all.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Embedder generates vector embeddings for text. Every vector an Embedder
// returns has exactly Dimensions() components.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// ErrDimensionMismatch is returned when vectors of different lengths are compared.
var ErrDimensionMismatch = fmt.Errorf("embedding: dimension mismatch")

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means orthogonal.
// A zero-magnitude vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}

	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}

// SimilarityResult is one ranked match from FindTopK.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the k corpus vectors most similar to query, best first.
// Equal similarities keep corpus order. Vectors whose dimension differs from
// the query are skipped.
func FindTopK(query []float32, corpus [][]float32, k int) []SimilarityResult {
	if k <= 0 {
		return nil
	}

	results := make([]SimilarityResult, 0, len(corpus))
	for i, vec := range corpus {
		sim, err := CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// embedEach implements EmbedBatch for engines without a native batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
