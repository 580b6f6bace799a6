// Package config loads application configuration from the environment (and an
// optional config file), with documented defaults. Missing provider
// credentials are fatal at startup, before the interactive loop starts.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Embedding EmbeddingConfig
	Chat      ChatConfig
	Qdrant    QdrantConfig
	Neo4j     Neo4jConfig
	Pipeline  PipelineConfig
	Logging   LoggingConfig
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "google".
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	// RatePerSec throttles provider calls; 0 disables the limiter.
	RatePerSec float64
	CachePath  string
}

// ChatConfig selects and configures the language model provider.
type ChatConfig struct {
	// Provider is "openrouter" or "openai".
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// QdrantConfig points at the vector index.
type QdrantConfig struct {
	Addr       string
	Collection string
}

// Neo4jConfig points at the graph store.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// PipelineConfig tunes the retrieval pipeline.
type PipelineConfig struct {
	TopK          int
	HistoryTurns  int
	EnrichWorkers int
	DataFile      string
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level string
	File  string
}

// Load reads configuration from an optional config.yaml and VIETVOYAGE_*
// environment variables, applying defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("VIETVOYAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Dimension follows the active embedding provider unless pinned.
	if cfg.Embedding.Dimension == 0 {
		if cfg.Embedding.Provider == "google" {
			cfg.Embedding.Dimension = 768
		} else {
			cfg.Embedding.Dimension = 1536
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.ratePerSec", 5.0)
	v.SetDefault("embedding.cachePath", ".cache/embeddings.json")

	v.SetDefault("chat.provider", "openrouter")
	v.SetDefault("chat.baseURL", "https://openrouter.ai/api/v1")
	v.SetDefault("chat.model", "meta-llama/llama-3.1-8b-instruct:free")
	v.SetDefault("chat.maxTokens", 1500)
	v.SetDefault("chat.temperature", 0.7)

	v.SetDefault("qdrant.addr", "localhost:6334")
	v.SetDefault("qdrant.collection", "vietnam-travel")

	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "neo4j")

	v.SetDefault("pipeline.topK", 5)
	v.SetDefault("pipeline.historyTurns", 6)
	v.SetDefault("pipeline.enrichWorkers", 4)
	v.SetDefault("pipeline.dataFile", "data/vietnam_travel_dataset.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

// Validate reports missing required configuration. Called at startup;
// failures are fatal before any provider is contacted.
func (c *Config) Validate() error {
	var missing []string

	if c.Embedding.APIKey == "" {
		missing = append(missing, "embedding.apiKey")
	}
	if c.Chat.APIKey == "" {
		missing = append(missing, "chat.apiKey")
	}
	if c.Neo4j.URI == "" {
		missing = append(missing, "neo4j.uri")
	}
	if c.Neo4j.Password == "" {
		missing = append(missing, "neo4j.password")
	}

	switch c.Embedding.Provider {
	case "openai", "google":
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Chat.Provider {
	case "openrouter", "openai":
	default:
		return fmt.Errorf("config: unknown chat provider %q", c.Chat.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
