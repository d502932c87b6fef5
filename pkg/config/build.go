package config

import (
	"context"
	"fmt"

	"github.com/entrhq/synapse/pkg/embedding"
	"github.com/entrhq/synapse/pkg/llm"
	"github.com/entrhq/synapse/pkg/llm/gemini"
	"github.com/entrhq/synapse/pkg/llm/ollama"
	"github.com/entrhq/synapse/pkg/llm/openai"
	"github.com/entrhq/synapse/pkg/memory/longterm"
)

// BuildReasoner creates the configured reasoning service.
func BuildReasoner(ctx context.Context, c *Config) (llm.Provider, error) {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(c.LLM.Model), openai.WithBaseURL(c.LLM.BaseURL)}
		if c.LLM.Temperature != nil {
			opts = append(opts, openai.WithTemperature(*c.LLM.Temperature))
		}
		p, err := openai.NewProvider(c.LLM.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	case ProviderGemini:
		opts := []gemini.Option{gemini.WithModel(c.LLM.Model), gemini.WithBaseURL(c.LLM.BaseURL)}
		if c.LLM.Temperature != nil {
			opts = append(opts, gemini.WithTemperature(*c.LLM.Temperature))
		}
		p, err := gemini.NewProvider(ctx, c.LLM.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(c.LLM.Model)}
		if c.LLM.Temperature != nil {
			opts = append(opts, ollama.WithTemperature(*c.LLM.Temperature))
		}
		return ollama.NewProvider(c.LLM.BaseURL, opts...), nil
	default:
		return nil, unknown("llm.provider", c.LLM.Provider)
	}
}

// BuildEmbedder creates the configured embedding provider. The "none"
// provider yields a nil Embedder and disables the semantic index.
func BuildEmbedder(ctx context.Context, c *Config) (embedding.Embedder, error) {
	e := c.Embedding
	switch e.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderHash:
		return embedding.NewHashEmbedder(e.Dimensions), nil
	case ProviderOllama:
		return embedding.NewOllamaEngine(e.Endpoint, e.Model, e.Dimensions), nil
	case ProviderGemini:
		emb, err := embedding.NewGenAIEngine(ctx, e.APIKey, e.Model, e.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, nil
	case ProviderOpenAI:
		emb, err := embedding.NewOpenAIEngine(e.APIKey, e.Endpoint, e.Model, e.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return emb, nil
	default:
		return nil, unknown("embedding.provider", e.Provider)
	}
}

// BuildLongTermStore opens the configured long-term memory backend.
func BuildLongTermStore(c *Config) (*longterm.Store, error) {
	m := c.Memory
	path := m.Path
	if path == "" && m.Backend != BackendRedis {
		p, err := DefaultMemoryPath(m.Backend)
		if err != nil {
			return nil, err
		}
		path = p
	}

	switch m.Backend {
	case BackendJSON:
		fs, err := longterm.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return longterm.New(fs), nil
	case BackendSQLite:
		s, err := longterm.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return longterm.New(s), nil
	case BackendRedis:
		rs := longterm.NewRedisStore(m.RedisAddr, m.RedisPassword, m.RedisDB, longterm.WithKey(m.RedisKey))
		return longterm.New(rs), nil
	default:
		return nil, unknown("memory.backend", m.Backend)
	}
}
