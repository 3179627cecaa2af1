package labcheck

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the lab checker.
type Config struct {
	// DBPath is the full path to the SQLite archive database.
	// If empty, defaults to ~/.labcheck/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the archive database (used when DBPath is
	// empty). Defaults to "labcheck". The file will be <DBName>.db inside
	// the storage directory (~/.labcheck/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not explicitly set. Options: "home" (default) uses ~/.labcheck/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Vision    LLMConfig `json:"vision" yaml:"vision"`       // falls back to Chat when empty
	Embedding LLMConfig `json:"embedding" yaml:"embedding"` // optional: enables archive similarity

	// OutputDir is the base directory for run artifact directories.
	// Empty disables artifact writing unless set per run.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// EmbeddingDim must match the embedding model (default 768).
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // openai, ollama, lmstudio, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local
// inference. The archive is stored in ~/.labcheck/labcheck.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "labcheck",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Vision: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2-vision",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim: 768,
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig, so unset
// fields keep their defaults. API keys missing from the file fall back
// to well-known environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}

	applyEnvKeys(&cfg)
	return cfg, nil
}

// applyEnvKeys fills missing API keys from the environment so config
// files can stay secret-free.
func applyEnvKeys(cfg *Config) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return
	}
	for _, lc := range []*LLMConfig{&cfg.Chat, &cfg.Vision, &cfg.Embedding} {
		if lc.APIKey == "" && lc.Provider == "openai" {
			lc.APIKey = key
		}
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "labcheck"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".labcheck")
		return filepath.Join(dir, name+".db")
	}
}
