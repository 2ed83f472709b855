// Package config provides configuration management for Recall. Settings
// load from environment variables with the RECALL_ prefix and every option
// has a sensible default, so a zero-configuration run works against a
// local Ollama instance and an on-disk SQLite index.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the Recall application.
type Config struct {
	Server    ServerConfig
	Memory    MemoryConfig
	Retrieval RetrievalConfig
	Context   ContextConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Security  SecurityConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 6370)
	Host string // Server host (default: 127.0.0.1)
}

// MemoryConfig controls conversation history bounds and compaction.
type MemoryConfig struct {
	MaxConversationTokens  int     // Token ceiling for conversation state (default: 4000)
	SummarizationThreshold float64 // Fraction of the ceiling that triggers compaction, in (0,1] (default: 0.8)
	RetentionWindow        int     // Most-recent messages never summarized away (default: 4)
}

// RetrievalConfig controls passage retrieval and filtering.
type RetrievalConfig struct {
	TopK                int     // Maximum passages returned per query (default: 5)
	ScoreThreshold      float64 // Minimum similarity score a passage must meet (default: 0.3)
	OverfetchMultiplier int     // Candidate over-fetch factor before filtering (default: 3)
	EmbeddingCacheSize  int     // LRU cache size for query embeddings (default: 256)
}

// ContextConfig controls the final payload budget.
type ContextConfig struct {
	Budget              int // Total token budget for the assembled payload (default: 6000)
	ResponseReservation int // Tokens held back for the model's reply (default: 1000)
}

// LLMConfig contains LLM provider configuration.
type LLMConfig struct {
	Provider             string  // LLM provider: ollama, openai, anthropic (default: ollama)
	OllamaURL            string  // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string  // Ollama model for chat and summarization (default: qwen2.5:7b)
	OllamaEmbeddingModel string  // Ollama model for embeddings (default: nomic-embed-text)
	OpenAIAPIKey         string  // OpenAI API key
	OpenAIModel          string  // OpenAI model name (default: gpt-4o-mini)
	AnthropicAPIKey      string  // Anthropic API key
	AnthropicModel       string  // Anthropic model name (default: claude-3-5-sonnet-20241022)
	RequestsPerSecond    float64 // Outbound LLM request rate limit (default: 2)
	TimeoutSeconds       int     // Per-call timeout for summarization and embedding (default: 30)
	PromptsPath          string  // Optional prompts YAML file; built-in templates when empty
}

// StorageConfig selects the vector index backend.
type StorageConfig struct {
	VectorBackend string // Vector index backend: sqlite, postgres (default: sqlite)
	SQLitePath    string // SQLite index path (default: ./data/recall.db)
	PostgresDSN   string // PostgreSQL DSN when VectorBackend is postgres
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token (required in production)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the RECALL_ prefix. It returns
// an error when a value violates the engine's invariants (for example a
// summarization threshold outside (0,1]).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("RECALL_PORT", 6370),
			Host: getEnv("RECALL_HOST", "127.0.0.1"),
		},
		Memory: MemoryConfig{
			MaxConversationTokens:  getEnvInt("RECALL_MAX_CONVERSATION_TOKENS", 4000),
			SummarizationThreshold: getEnvFloat("RECALL_SUMMARIZATION_THRESHOLD", 0.8),
			RetentionWindow:        getEnvInt("RECALL_RETENTION_WINDOW", 4),
		},
		Retrieval: RetrievalConfig{
			TopK:                getEnvInt("RECALL_RETRIEVAL_TOP_K", 5),
			ScoreThreshold:      getEnvFloat("RECALL_RETRIEVAL_THRESHOLD", 0.3),
			OverfetchMultiplier: getEnvInt("RECALL_OVERFETCH_MULTIPLIER", 3),
			EmbeddingCacheSize:  getEnvInt("RECALL_EMBEDDING_CACHE_SIZE", 256),
		},
		Context: ContextConfig{
			Budget:              getEnvInt("RECALL_CONTEXT_BUDGET", 6000),
			ResponseReservation: getEnvInt("RECALL_RESPONSE_RESERVATION", 1000),
		},
		LLM: LLMConfig{
			Provider:             getEnv("RECALL_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("RECALL_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("RECALL_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("RECALL_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("RECALL_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("RECALL_OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey:      getEnv("RECALL_ANTHROPIC_API_KEY", ""),
			AnthropicModel:       getEnv("RECALL_ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			RequestsPerSecond:    getEnvFloat("RECALL_LLM_REQUESTS_PER_SECOND", 2),
			TimeoutSeconds:       getEnvInt("RECALL_LLM_TIMEOUT_SECONDS", 30),
			PromptsPath:          getEnv("RECALL_PROMPTS_PATH", ""),
		},
		Storage: StorageConfig{
			VectorBackend: getEnv("RECALL_VECTOR_BACKEND", "sqlite"),
			SQLitePath:    getEnv("RECALL_SQLITE_PATH", "./data/recall.db"),
			PostgresDSN:   getEnv("RECALL_POSTGRES_DSN", ""),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("RECALL_SECURITY_MODE", "development"),
			APIToken:     getEnv("RECALL_API_TOKEN", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks the invariants the engine depends on.
func (c *Config) validate() error {
	if c.Memory.MaxConversationTokens <= 0 {
		return fmt.Errorf("config: max conversation tokens must be positive, got %d", c.Memory.MaxConversationTokens)
	}
	if c.Memory.SummarizationThreshold <= 0 || c.Memory.SummarizationThreshold > 1 {
		return fmt.Errorf("config: summarization threshold must be in (0,1], got %g", c.Memory.SummarizationThreshold)
	}
	if c.Memory.RetentionWindow < 1 {
		return fmt.Errorf("config: retention window must be at least 1, got %d", c.Memory.RetentionWindow)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("config: retrieval top-k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("config: retrieval threshold must be in [0,1], got %g", c.Retrieval.ScoreThreshold)
	}
	if c.Retrieval.OverfetchMultiplier < 1 {
		return fmt.Errorf("config: over-fetch multiplier must be at least 1, got %d", c.Retrieval.OverfetchMultiplier)
	}
	if c.Context.Budget <= 0 {
		return fmt.Errorf("config: context budget must be positive, got %d", c.Context.Budget)
	}
	if c.Context.ResponseReservation < 0 || c.Context.ResponseReservation >= c.Context.Budget {
		return fmt.Errorf("config: response reservation must be in [0, budget), got %d", c.Context.ResponseReservation)
	}
	switch c.Storage.VectorBackend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported vector backend %q", c.Storage.VectorBackend)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparsable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparsable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
