// Package config loads, validates and persists Synapse settings.
//
// Settings resolve with the precedence CLI flags > environment variables >
// config file > defaults. The config file is YAML, by default at
// ~/.config/synapse/config.yaml; a missing file means defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider identifiers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
	ProviderNone   = "none"
)

// Long-term memory backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnknownProvider is wrapped by a ConfigurationError naming a provider
// or backend this build does not know.
var ErrUnknownProvider = errors.New("config: unknown provider")

// ConfigurationError reports an invalid setting. It is fatal at startup.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LLMConfig selects the reasoning service.
type LLMConfig struct {
	Provider    string   `yaml:"provider"`
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	APIKey      string   `yaml:"api_key,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// EmbeddingConfig selects the embedding provider for the semantic index.
// Zero Dimensions means the provider's default.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model,omitempty"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Dimensions int    `yaml:"dimensions,omitempty"`
}

// MemoryConfig configures working and long-term memory.
type MemoryConfig struct {
	Backend            string `yaml:"backend"`
	Path               string `yaml:"path,omitempty"`
	RedisAddr          string `yaml:"redis_addr,omitempty"`
	RedisPassword      string `yaml:"redis_password,omitempty"`
	RedisDB            int    `yaml:"redis_db,omitempty"`
	RedisKey           string `yaml:"redis_key,omitempty"`
	MaxTurns           int    `yaml:"max_turns"`
	ContextTurns       int    `yaml:"context_turns"`
	RetrieveLimit      int    `yaml:"retrieve_limit"`
	SearchTopK         int    `yaml:"search_top_k"`
	ContextTokenBudget int    `yaml:"context_token_budget,omitempty"`
	ChunkMinLength     int    `yaml:"chunk_min_length"`
}

// PipelineConfig configures the scheduler.
type PipelineConfig struct {
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// LoggingConfig configures the session log.
type LoggingConfig struct {
	Dir   string `yaml:"dir,omitempty"`
	Level string `yaml:"level"`
}

// Config is the complete configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Memory    MemoryConfig    `yaml:"memory"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the built-in defaults.
func Default() *Config {
	temperature := 0.7
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: &temperature,
		},
		Embedding: EmbeddingConfig{
			Provider: ProviderHash,
		},
		Memory: MemoryConfig{
			Backend:        BackendJSON,
			MaxTurns:       15,
			ContextTurns:   10,
			RetrieveLimit:  5,
			SearchTopK:     3,
			ChunkMinLength: 50,
		},
		Pipeline: PipelineConfig{
			RunTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.config/synapse/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "synapse", "config.yaml"), nil
}

// DefaultMemoryPath returns the default long-term store location for backend.
func DefaultMemoryPath(backend string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	name := "brain_memory.json"
	if backend == BackendSQLite {
		name = "brain_memory.db"
	}
	return filepath.Join(home, ".synapse", name), nil
}

// Load reads the config file at path over the defaults. An empty path
// means DefaultPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path atomically via a temporary file.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, b, 0o600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through getenv (os.Getenv
// when nil). Provider-specific keys only apply to the matching provider.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.LLM.Provider, "SYNAPSE_PROVIDER")
	set(&c.LLM.Model, "SYNAPSE_MODEL")
	set(&c.Memory.Backend, "SYNAPSE_MEMORY_BACKEND")
	set(&c.Memory.Path, "SYNAPSE_MEMORY_PATH")
	set(&c.Embedding.Provider, "SYNAPSE_EMBEDDING_PROVIDER")

	switch c.LLM.Provider {
	case ProviderOpenAI:
		set(&c.LLM.APIKey, "OPENAI_API_KEY")
		set(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	case ProviderGemini:
		set(&c.LLM.APIKey, "GOOGLE_API_KEY")
	case ProviderOllama:
		set(&c.LLM.BaseURL, "OLLAMA_HOST")
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		set(&c.Embedding.APIKey, "OPENAI_API_KEY")
		set(&c.Embedding.Endpoint, "OPENAI_BASE_URL")
	case ProviderGemini:
		set(&c.Embedding.APIKey, "GOOGLE_API_KEY")
	case ProviderOllama:
		set(&c.Embedding.Endpoint, "OLLAMA_HOST")
	}
}

// Flags holds command-line overrides. Zero values leave settings alone.
type Flags struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Memory   string
	Timeout  time.Duration
}

// ApplyFlags overlays command-line overrides.
func (c *Config) ApplyFlags(f Flags) {
	if f.Provider != "" {
		c.LLM.Provider = f.Provider
	}
	if f.Model != "" {
		c.LLM.Model = f.Model
	}
	if f.BaseURL != "" {
		c.LLM.BaseURL = f.BaseURL
	}
	if f.APIKey != "" {
		c.LLM.APIKey = f.APIKey
	}
	if f.Memory != "" {
		c.Memory.Path = f.Memory
	}
	if f.Timeout > 0 {
		c.Pipeline.RunTimeout = f.Timeout
	}
}

// Resolve applies environment variables and then flags. A provider flag is
// applied first so the provider-specific environment keys match it.
func (c *Config) Resolve(f Flags, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if f.Provider != "" {
		base := getenv
		getenv = func(key string) string {
			if key == "SYNAPSE_PROVIDER" {
				return f.Provider
			}
			return base(key)
		}
	}
	c.ApplyEnv(getenv)
	c.ApplyFlags(f)
}

// Validate checks every setting and returns the first problem as a
// *ConfigurationError.
func (c *Config) Validate() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	c.Memory.Backend = strings.ToLower(strings.TrimSpace(c.Memory.Backend))

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
		if c.LLM.APIKey == "" {
			return &ConfigurationError{Field: "llm.api_key", Reason: fmt.Sprintf("an API key is required for provider %q", c.LLM.Provider)}
		}
	case ProviderOllama:
	default:
		return unknown("llm.provider", c.LLM.Provider)
	}
	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		return &ConfigurationError{Field: "llm.temperature", Reason: fmt.Sprintf("must be between 0 and 2, got %g", *t)}
	}

	switch c.Embedding.Provider {
	case ProviderNone:
	case ProviderOpenAI, ProviderGemini, ProviderOllama, ProviderHash:
		if c.Embedding.Dimensions < 0 {
			return &ConfigurationError{Field: "embedding.dimensions", Reason: "must not be negative"}
		}
	default:
		return unknown("embedding.provider", c.Embedding.Provider)
	}

	switch c.Memory.Backend {
	case BackendJSON, BackendSQLite:
	case BackendRedis:
		if c.Memory.RedisAddr == "" {
			return &ConfigurationError{Field: "memory.redis_addr", Reason: "required for the redis backend"}
		}
	default:
		return unknown("memory.backend", c.Memory.Backend)
	}

	for _, f := range []struct {
		name  string
		value int
	}{
		{"memory.max_turns", c.Memory.MaxTurns},
		{"memory.context_turns", c.Memory.ContextTurns},
		{"memory.retrieve_limit", c.Memory.RetrieveLimit},
		{"memory.search_top_k", c.Memory.SearchTopK},
		{"memory.chunk_min_length", c.Memory.ChunkMinLength},
	} {
		if f.value <= 0 {
			return positive(f.name, f.value)
		}
	}
	if c.Memory.ContextTokenBudget < 0 {
		return &ConfigurationError{Field: "memory.context_token_budget", Reason: "must not be negative"}
	}
	if c.Pipeline.RunTimeout < 0 {
		return &ConfigurationError{Field: "pipeline.run_timeout", Reason: "must not be negative"}
	}

	if c.Logging.Level != "" {
		switch strings.ToLower(c.Logging.Level) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return &ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
		}
	}
	return nil
}

func unknown(field, value string) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown value %q", value), Err: ErrUnknownProvider}
}

func positive(field string, value int) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf("must be positive, got %d", value)}
}
