package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/synapse/pkg/embedding"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `llm:
  provider: ollama
  model: llama3.2
  temperature: 0.2
memory:
  backend: sqlite
  retrieve_limit: 8
pipeline:
  run_timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Temperature)
	assert.InDelta(t, 0.2, *cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, BackendSQLite, cfg.Memory.Backend)
	assert.Equal(t, 8, cfg.Memory.RetrieveLimit)
	assert.Equal(t, 15, cfg.Memory.MaxTurns, "unset fields keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Pipeline.RunTimeout)
	assert.Equal(t, ProviderHash, cfg.Embedding.Provider)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to decode config file")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.LLM.Provider = ProviderGemini
	cfg.Memory.Backend = BackendRedis
	cfg.Memory.RedisAddr = "localhost:6379"
	cfg.Pipeline.RunTimeout = 90 * time.Second
	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		flags Flags
		check func(t *testing.T, c *Config)
	}{
		{
			name: "environment over file",
			env:  map[string]string{"SYNAPSE_PROVIDER": "gemini", "GOOGLE_API_KEY": "g-key", "OPENAI_API_KEY": "o-key"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ProviderGemini, c.LLM.Provider)
				assert.Equal(t, "g-key", c.LLM.APIKey)
			},
		},
		{
			name:  "provider flag selects the matching key",
			env:   map[string]string{"SYNAPSE_PROVIDER": "gemini", "GOOGLE_API_KEY": "g-key", "OPENAI_API_KEY": "o-key"},
			flags: Flags{Provider: ProviderOpenAI},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ProviderOpenAI, c.LLM.Provider)
				assert.Equal(t, "o-key", c.LLM.APIKey)
			},
		},
		{
			name:  "flags over environment",
			env:   map[string]string{"OPENAI_API_KEY": "env-key", "SYNAPSE_MODEL": "gpt-4o", "SYNAPSE_MEMORY_PATH": "/env/mem.json"},
			flags: Flags{APIKey: "flag-key", Memory: "/flag/mem.json", Timeout: time.Minute},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "flag-key", c.LLM.APIKey)
				assert.Equal(t, "gpt-4o", c.LLM.Model)
				assert.Equal(t, "/flag/mem.json", c.Memory.Path)
				assert.Equal(t, time.Minute, c.Pipeline.RunTimeout)
			},
		},
		{
			name: "ollama host and embedding provider",
			env:  map[string]string{"SYNAPSE_PROVIDER": "ollama", "OLLAMA_HOST": "http://gpu:11434", "SYNAPSE_EMBEDDING_PROVIDER": "ollama", "OPENAI_API_KEY": "ignored"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "http://gpu:11434", c.LLM.BaseURL)
				assert.Equal(t, "http://gpu:11434", c.Embedding.Endpoint)
				assert.Empty(t, c.LLM.APIKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolve(tt.flags, envMap(tt.env))
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		field   string
		unknown bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "provider case is normalised", mutate: func(c *Config) { c.LLM.Provider = " Ollama " }},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "claude" }, field: "llm.provider", unknown: true},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.Provider = ProviderOpenAI; c.LLM.APIKey = "" }, field: "llm.api_key"},
		{name: "temperature out of range", mutate: func(c *Config) { v := 2.5; c.LLM.Temperature = &v }, field: "llm.temperature"},
		{name: "unknown embedding", mutate: func(c *Config) { c.Embedding.Provider = "word2vec" }, field: "embedding.provider", unknown: true},
		{name: "negative dimensions", mutate: func(c *Config) { c.Embedding.Dimensions = -1 }, field: "embedding.dimensions"},
		{name: "embedding disabled", mutate: func(c *Config) { c.Embedding.Provider = ProviderNone; c.Embedding.Dimensions = -1 }},
		{name: "unknown backend", mutate: func(c *Config) { c.Memory.Backend = "mongo" }, field: "memory.backend", unknown: true},
		{name: "redis without address", mutate: func(c *Config) { c.Memory.Backend = BackendRedis }, field: "memory.redis_addr"},
		{name: "zero retrieve limit", mutate: func(c *Config) { c.Memory.RetrieveLimit = 0 }, field: "memory.retrieve_limit"},
		{name: "negative token budget", mutate: func(c *Config) { c.Memory.ContextTokenBudget = -5 }, field: "memory.context_token_budget"},
		{name: "negative timeout", mutate: func(c *Config) { c.Pipeline.RunTimeout = -time.Second }, field: "pipeline.run_timeout"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, field: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LLM.Provider = ProviderOllama
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
			assert.Equal(t, tt.unknown, errors.Is(err, ErrUnknownProvider))
		})
	}
}

func TestValidate_NormalisesProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = " OLLAMA"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
}

func TestBuildEmbedder(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	emb, err := BuildEmbedder(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &embedding.HashEmbedder{}, emb)
	assert.Equal(t, 256, emb.Dimensions())

	cfg.Embedding.Dimensions = 64
	emb, err = BuildEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 64, emb.Dimensions())

	cfg.Embedding = EmbeddingConfig{Provider: ProviderOllama}
	emb, err = BuildEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 768, emb.Dimensions())

	cfg.Embedding.Provider = ProviderNone
	emb, err = BuildEmbedder(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, emb)

	cfg.Embedding.Provider = "word2vec"
	_, err = BuildEmbedder(ctx, cfg)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestBuildLongTermStore(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendJSON, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.Memory.Backend = backend
			cfg.Memory.Path = filepath.Join(t.TempDir(), "memory")

			store, err := BuildLongTermStore(cfg)
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })

			_, err = store.AddEntry(ctx, "User: hi\nResponse: hello", []string{"conversation"})
			require.NoError(t, err)

			got, err := store.Retrieve(ctx, "hello", 5)
			require.NoError(t, err)
			require.Len(t, got, 1)
		})
	}

	cfg := Default()
	cfg.Memory.Backend = "mongo"
	_, err := BuildLongTermStore(cfg)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestBuildLongTermStore_RedisUnreachable(t *testing.T) {
	cfg := Default()
	cfg.Memory.Backend = BackendRedis
	cfg.Memory.RedisAddr = "127.0.0.1:1"

	store, err := BuildLongTermStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Unreachable redis degrades to empty recall.
	got, err := store.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBuildReasoner(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	cfg.LLM.Provider = ProviderOllama
	cfg.LLM.Model = "llama3.2"
	p, err := BuildReasoner(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", p.Model())

	cfg.LLM.Provider = "claude"
	_, err = BuildReasoner(ctx, cfg)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
