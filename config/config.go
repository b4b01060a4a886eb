package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the knowledge base.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig locates the persisted store. Path is the base name; the
// engine writes <path>.index and <path>.db next to each other.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "mock"
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKeyEnv      string `yaml:"api_key_env"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	InitAttempts   int    `yaml:"init_attempts"`
}

// SearchConfig holds ranking thresholds.
type SearchConfig struct {
	TopK                int     `yaml:"top_k"`
	Strategy            string  `yaml:"strategy"` // "weighted" or "relevance"
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	KeywordThreshold    float64 `yaml:"keyword_threshold"`
	ScoreThreshold      float64 `yaml:"score_threshold"`
	MinScore            float64 `yaml:"min_score"` // filter ranked results below this (0 = disabled)
	MaxQueryRunes       int     `yaml:"max_query_runes"`
}

// IngestConfig controls the CLI add command.
type IngestConfig struct {
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkRunes   int      `yaml:"chunk_runes"`
	OverlapRunes int      `yaml:"overlap_runes"`
}

// WatchConfig controls the background reload watcher.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "data/knowledge",
		},
		Embedding: EmbeddingConfig{
			Provider:       "openai",
			Model:          "text-embedding-3-small",
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      1536,
			BatchSize:      100,
			TimeoutSeconds: 60,
			InitAttempts:   3,
		},
		Search: SearchConfig{
			TopK:                5,
			Strategy:            "weighted",
			SimilarityThreshold: 0.3,
			KeywordThreshold:    0.3,
			ScoreThreshold:      0.4,
			MaxQueryRunes:       1000,
		},
		Ingest: IngestConfig{
			Includes:     []string{"**/*.txt", "**/*.md"},
			Excludes:     []string{"**/.git/**", "**/node_modules/**"},
			ChunkRunes:   500,
			OverlapRunes: 50,
		},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMS: 500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for smartkb.yaml in dir.
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "smartkb.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return DefaultConfig(), nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EmbeddingTimeout returns the configured request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// WatchDebounce returns the configured watcher debounce.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
