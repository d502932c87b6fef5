// Package semantic provides embedding-backed nearest-neighbour search over
// one loaded data set at a time.
//
// Every IndexText or IndexProfile call builds a complete new generation of
// vectors and swaps it in atomically; a concurrent Search sees either the
// previous generation or the new one, never a mixture.
package semantic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/entrhq/synapse/pkg/embedding"
	"github.com/google/uuid"
)

// Chunk types recorded on indexed vectors.
const (
	ChunkTypeBiography     = "biography"
	ChunkTypeProfilePrefix = "profile_"
)

// Vector is one indexed chunk.
type Vector struct {
	ID        string
	Embedding []float32
	Text      string
	ChunkType string
}

// Field is one named profile value for IndexProfile.
type Field struct {
	Name  string
	Value string
}

// Match is one Search hit.
type Match struct {
	Text       string
	ChunkType  string
	Similarity float64
}

type generation struct {
	label   string
	vectors []Vector
	matrix  [][]float32
}

// Index is a semantic index over the currently loaded data set.
type Index struct {
	embedder  embedding.Embedder
	minLength int
	newID     func() string

	// build serializes reindexing; readers never take it.
	build   sync.Mutex
	current atomic.Pointer[generation]
}

// Option configures an Index.
type Option func(*Index)

// WithMinChunkLength overrides DefaultMinChunkLength.
func WithMinChunkLength(n int) Option {
	return func(i *Index) {
		if n > 0 {
			i.minLength = n
		}
	}
}

// New creates an empty index that embeds with e.
func New(e embedding.Embedder, opts ...Option) *Index {
	idx := &Index{
		embedder:  e,
		minLength: DefaultMinChunkLength,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexText chunks text into paragraphs and replaces the loaded data set
// with them. It returns the number of chunks indexed. On error the previous
// data set stays loaded.
func (i *Index) IndexText(ctx context.Context, text, label string) (int, error) {
	chunks := ChunkText(text, i.minLength)
	types := make([]string, len(chunks))
	for n := range types {
		types[n] = ChunkTypeBiography
	}
	return i.replace(ctx, label, chunks, types)
}

// IndexProfile indexes one "NAME: value" chunk per non-empty field and
// replaces the loaded data set with them.
func (i *Index) IndexProfile(ctx context.Context, fields []Field, label string) (int, error) {
	var chunks, types []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		chunks = append(chunks, f.Name+": "+f.Value)
		types = append(types, ChunkTypeProfilePrefix+strings.ToLower(f.Name))
	}
	return i.replace(ctx, label, chunks, types)
}

func (i *Index) replace(ctx context.Context, label string, chunks, types []string) (int, error) {
	i.build.Lock()
	defer i.build.Unlock()

	gen := &generation{label: SafeLabel(label)}
	if len(chunks) > 0 {
		vecs, err := i.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			return 0, fmt.Errorf("semantic: embed %d chunks: %w", len(chunks), err)
		}
		if len(vecs) != len(chunks) {
			return 0, fmt.Errorf("semantic: embedder returned %d vectors for %d chunks", len(vecs), len(chunks))
		}

		dims := i.embedder.Dimensions()
		gen.vectors = make([]Vector, len(chunks))
		gen.matrix = make([][]float32, len(chunks))
		for n, vec := range vecs {
			if len(vec) != dims {
				return 0, fmt.Errorf("semantic: chunk %d: %w: got %d, want %d",
					n, embedding.ErrDimensionMismatch, len(vec), dims)
			}
			gen.vectors[n] = Vector{
				ID:        i.newID(),
				Embedding: vec,
				Text:      chunks[n],
				ChunkType: types[n],
			}
			gen.matrix[n] = vec
		}
	}

	i.current.Store(gen)
	return len(gen.vectors), nil
}

// Search returns the texts of the topK chunks most similar to query.
// It returns an empty slice when nothing is loaded.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]string, error) {
	matches, err := i.Matches(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for n, m := range matches {
		out[n] = m.Text
	}
	return out, nil
}

// Matches is Search with chunk types and similarity scores.
func (i *Index) Matches(ctx context.Context, query string, topK int) ([]Match, error) {
	gen := i.current.Load()
	if gen == nil || len(gen.vectors) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	q, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed query: %w", err)
	}

	top := embedding.FindTopK(q, gen.matrix, topK)
	out := make([]Match, len(top))
	for n, r := range top {
		v := gen.vectors[r.Index]
		out[n] = Match{Text: v.Text, ChunkType: v.ChunkType, Similarity: r.Similarity}
	}
	return out, nil
}

// Clear unloads the current data set.
func (i *Index) Clear() {
	i.build.Lock()
	defer i.build.Unlock()
	i.current.Store(nil)
}

// Loaded reports whether a data set is loaded.
func (i *Index) Loaded() bool {
	return i.current.Load() != nil
}

// Label returns the normalized label of the loaded data set, or "".
func (i *Index) Label() string {
	if gen := i.current.Load(); gen != nil {
		return gen.label
	}
	return ""
}

// Len returns the number of vectors in the loaded data set.
func (i *Index) Len() int {
	if gen := i.current.Load(); gen != nil {
		return len(gen.vectors)
	}
	return 0
}
