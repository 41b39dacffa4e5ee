// Package config provides configuration loading for sovereign.
//
// Configuration is read from an optional YAML file and environment variables
// (see LoadWithFile). Every section has defaults so a bare invocation works
// against local services.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete sovereign configuration.
type Config struct {
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	LLM          LLMConfig          `koanf:"llm"`
	Memory       MemoryConfig       `koanf:"memory"`
	Git          GitConfig          `koanf:"git"`
	Deps         DepsConfig         `koanf:"deps"`
	NATS         NATSConfig         `koanf:"nats"`
	Server       ServerConfig       `koanf:"server"`
	Secrets      SecretsConfig      `koanf:"secrets"`
	Log          LogConfig          `koanf:"log"`
}

// OrchestratorConfig controls the orchestration loop.
type OrchestratorConfig struct {
	// ConcurrentProviders lets sessions call capability providers in
	// parallel. Off by default: all provider calls go through one gate.
	ConcurrentProviders bool `koanf:"concurrent_providers"`
}

// LLMConfig configures the language model backing the planner, debug,
// NL and query agents.
type LLMConfig struct {
	Provider  string `koanf:"provider"` // openai or ollama
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	APIKey    Secret `koanf:"api_key"`
	CacheSize int    `koanf:"cache_size"`
}

// MemoryConfig configures where anomalies are recorded.
type MemoryConfig struct {
	Provider   string           `koanf:"provider"` // qdrant, chromem or none
	Collection string           `koanf:"collection"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	ChromemDir string           `koanf:"chromem_dir"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
}

// QdrantConfig holds Qdrant gRPC connection settings.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	UseTLS     bool   `koanf:"use_tls"`
	APIKey     Secret `koanf:"api_key"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EmbeddingsConfig points at an OpenAI-compatible embeddings endpoint (TEI or OpenAI).
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// GitConfig configures the version-control actor.
type GitConfig struct {
	WorkDir     string `koanf:"work_dir"`
	RepoName    string `koanf:"repo_name"`
	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`
	Owner       string `koanf:"owner"` // GitHub org; empty means the token's user
	Private     bool   `koanf:"private"`
	Token       Secret `koanf:"token"`
}

// DepsConfig configures the dependency installer.
type DepsConfig struct {
	Command string `koanf:"command"`
	WorkDir string `koanf:"work_dir"`
}

// NATSConfig configures session event publishing. An empty URL disables it.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// SecretsConfig controls redaction of prompts and stored context.
type SecretsConfig struct {
	// Allowlist holds regexes for values that are never redacted.
	Allowlist []string `koanf:"allowlist"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported llm provider %q (must be openai or ollama)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("llm model is required")
	}
	if c.LLM.CacheSize < 0 {
		return fmt.Errorf("llm cache size must be >= 0, got %d", c.LLM.CacheSize)
	}

	switch c.Memory.Provider {
	case "qdrant":
		if c.Memory.Qdrant.Port < 1 || c.Memory.Qdrant.Port > 65535 {
			return fmt.Errorf("invalid qdrant port: %d (must be 1-65535)", c.Memory.Qdrant.Port)
		}
		if c.Memory.Qdrant.VectorSize == 0 {
			return errors.New("qdrant vector size must be positive")
		}
	case "chromem", "none":
	default:
		return fmt.Errorf("unsupported memory provider %q (must be qdrant, chromem or none)", c.Memory.Provider)
	}

	if c.Git.RepoName == "" {
		return errors.New("git repo name is required")
	}
	if c.Deps.Command == "" {
		return errors.New("deps command is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.BaseURL == "" {
		if cfg.LLM.Provider == "ollama" {
			cfg.LLM.BaseURL = "http://localhost:11434"
		} else {
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.CacheSize == 0 {
		cfg.LLM.CacheSize = 100
	}

	if cfg.Memory.Provider == "" {
		cfg.Memory.Provider = "chromem"
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = "sovereign_context"
	}
	if cfg.Memory.Qdrant.Host == "" {
		cfg.Memory.Qdrant.Host = "localhost"
	}
	if cfg.Memory.Qdrant.Port == 0 {
		cfg.Memory.Qdrant.Port = 6334
	}
	if cfg.Memory.Qdrant.VectorSize == 0 {
		cfg.Memory.Qdrant.VectorSize = 384 // bge-small-en-v1.5
	}
	if cfg.Memory.Embeddings.BaseURL == "" {
		cfg.Memory.Embeddings.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Memory.Embeddings.Model == "" {
		cfg.Memory.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Git.WorkDir == "" {
		cfg.Git.WorkDir = "."
	}
	if cfg.Git.RepoName == "" {
		cfg.Git.RepoName = "new_repo"
	}
	if cfg.Git.AuthorName == "" {
		cfg.Git.AuthorName = "sovereign"
	}
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = "sovereign@localhost"
	}

	if cfg.Deps.Command == "" {
		cfg.Deps.Command = "pip install -r requirements.txt"
	}
	if cfg.Deps.WorkDir == "" {
		cfg.Deps.WorkDir = "."
	}

	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "sovereign.sessions"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
