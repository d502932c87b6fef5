package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic bag-of-words embedder using the hashing
// trick. It needs no model or network and is used offline and in tests:
// texts sharing words score high, texts sharing none score zero.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a HashEmbedder. dims <= 0 means 256.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

// Embed hashes each lowercase word of text into a signed bucket and
// L2-normalizes the result.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dims)
	for _, word := range Tokenize(text) {
		f := fnv.New64a()
		f.Write([]byte(word))
		sum := f.Sum64()

		bucket := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in turn.
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, h, texts)
}

// Dimensions returns the dimensionality of embeddings.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Name returns the engine name.
func (h *HashEmbedder) Name() string { return "hash" }

// Tokenize splits text into lowercase words of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
