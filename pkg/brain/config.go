package brain

import (
	"context"
	"fmt"

	"github.com/entrhq/synapse/pkg/config"
	"github.com/entrhq/synapse/pkg/logging"
	"github.com/entrhq/synapse/pkg/memory/semantic"
	"github.com/entrhq/synapse/pkg/memory/working"
	"github.com/entrhq/synapse/pkg/tokens"
)

// NewFromConfig validates cfg and builds a Brain with the collaborators it
// names. Extra options are applied last.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...Option) (*Brain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reasoner, err := config.BuildReasoner(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := config.BuildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := config.BuildLongTermStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("brain: open long-term store: %w", err)
	}

	m := cfg.Memory
	base := []Option{
		WithLogger(logger),
		WithLongTermStore(store),
		WithWorkingMemory(working.New(m.MaxTurns)),
		WithContextTurns(m.ContextTurns),
		WithRetrieveLimit(m.RetrieveLimit),
		WithSearchTopK(m.SearchTopK),
		WithTimeout(cfg.Pipeline.RunTimeout),
	}
	if m.ContextTokenBudget > 0 {
		base = append(base, WithContextTokenBudget(m.ContextTokenBudget, tokens.NewCounter(tokens.DefaultEncoding)))
	}
	if embedder != nil {
		base = append(base, WithSemanticIndex(semantic.New(embedder, semantic.WithMinChunkLength(m.ChunkMinLength))))
	}

	b, err := New(reasoner, append(base, opts...)...)
	if err != nil {
		store.Close()
		return nil, err
	}
	logger.Infof("brain ready: provider=%s model=%s memory=%s", cfg.LLM.Provider, reasoner.Model(), m.Backend)
	return b, nil
}
