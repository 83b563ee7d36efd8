package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the indexing pipeline.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Store     StoreConfig     `yaml:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig describes where input documents come from.
type SourceConfig struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
}

// StoreConfig describes the vector store output.
type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// ChunkingConfig holds the semantic chunker parameters, in characters.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "openai", "ollama", "mock"
	Model          string `yaml:"model"`
	APIKeyEnv      string `yaml:"api_key_env"` // environment variable for the API key
	BaseURL        string `yaml:"base_url"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration: 800-character chunks with
// 200 characters of overlap, batches of 100, a 384-dimension local model.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Dir:     "./knowledge_base_pdfs",
			Pattern: "*.pdf",
		},
		Store: StoreConfig{
			Path:       "./vector_db",
			Collection: "pdf_documents",
		},
		Chunking: ChunkingConfig{
			Size:    800,
			Overlap: 200,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			Model:          "all-minilm",
			APIKeyEnv:      "OPENAI_API_KEY",
			Dimension:      384,
			BatchSize:      100,
			TimeoutSeconds: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for pdfrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "pdfrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".pdfrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate rejects configuration the pipeline cannot run with. This is the
// only stage allowed to abort: every failure past validation is recovered,
// logged and counted instead.
func (c *Config) Validate() error {
	info, err := os.Stat(c.Source.Dir)
	if err != nil {
		return fmt.Errorf("source directory %s: %w", c.Source.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", c.Source.Dir)
	}

	if c.Chunking.Size < 100 {
		return fmt.Errorf("chunk size must be at least 100 characters, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}

	if c.Embedding.BatchSize < 1 {
		return fmt.Errorf("embedding batch size must be at least 1, got %d", c.Embedding.BatchSize)
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding dimension must be at least 1, got %d", c.Embedding.Dimension)
	}

	return nil
}

// EmbedTimeout returns the per-batch embedding deadline.
func (c *Config) EmbedTimeout() time.Duration {
	if c.Embedding.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// SlogLevel maps the configured logging level onto slog.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
