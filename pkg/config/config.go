// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"

	"github.com/chronicle-kb/chronicle/pkg/search"
)

// Config holds all configuration for the application.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Conflict   ConflictConfig   `mapstructure:"conflict"`
	Search     SearchConfig     `mapstructure:"search"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Batch      BatchConfig      `mapstructure:"batch"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig selects and configures the backing store.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory, postgres, neo4j
	// DSN is the postgres connection string.
	DSN string `mapstructure:"dsn"`
	// URI, Username, Password, Database configure neo4j.
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// VectorDims is the embedding column width for stores that need a
	// fixed dimension at schema time.
	VectorDims int `mapstructure:"vector_dims"`
}

// ResolutionConfig holds entity resolution thresholds.
type ResolutionConfig struct {
	FuzzyThreshold     float64 `mapstructure:"fuzzy_threshold"`
	AutoMergeThreshold float64 `mapstructure:"auto_merge_threshold"`
	MaxChainHops       int     `mapstructure:"max_chain_hops"`
}

// ConflictConfig holds the conflict detector's similarity band.
type ConflictConfig struct {
	LowerBound float64 `mapstructure:"lower_bound"`
	UpperBound float64 `mapstructure:"upper_bound"`
}

// SearchConfig holds ranking configuration.
type SearchConfig struct {
	Weights  search.Weights `mapstructure:"weights"`
	MinScore float64        `mapstructure:"min_score"`
	Limit    int            `mapstructure:"limit"`
}

// EmbeddingConfig holds embedding client configuration.
type EmbeddingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// ExtractionConfig holds extraction method configuration.
type ExtractionConfig struct {
	// Method selects the default extractor: rule_based or llm.
	Method      string  `mapstructure:"method"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig tunes the breaker around remote extraction.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// BatchConfig holds batch ingestion settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Load loads configuration from viper's configured sources and environment
// variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)
	return config, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("store.database", "neo4j")
	viper.SetDefault("store.vector_dims", 1536)

	viper.SetDefault("resolution.fuzzy_threshold", 0.8)
	viper.SetDefault("resolution.auto_merge_threshold", 0.9)
	viper.SetDefault("resolution.max_chain_hops", 10)

	viper.SetDefault("conflict.lower_bound", 0.5)
	viper.SetDefault("conflict.upper_bound", 0.95)

	viper.SetDefault("search.weights.full_text", 0.25)
	viper.SetDefault("search.weights.vector", 0.25)
	viper.SetDefault("search.weights.entity_overlap", 0.15)
	viper.SetDefault("search.weights.term_overlap", 0.15)
	viper.SetDefault("search.weights.relationship", 0.05)
	viper.SetDefault("search.weights.direct_answer", 0.05)
	viper.SetDefault("search.weights.confidence", 0.10)
	viper.SetDefault("search.min_score", 0.0)
	viper.SetDefault("search.limit", 20)

	viper.SetDefault("embedding.enabled", false)
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)
	viper.SetDefault("embedding.batch_size", 100)

	viper.SetDefault("extraction.method", "rule_based")
	viper.SetDefault("extraction.temperature", 0.0)
	viper.SetDefault("extraction.circuit_breaker.enabled", true)
	viper.SetDefault("extraction.circuit_breaker.max_requests", 3)
	viper.SetDefault("extraction.circuit_breaker.interval", 60)
	viper.SetDefault("extraction.circuit_breaker.timeout", 30)
	viper.SetDefault("extraction.circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("batch.concurrency", 8)
}

func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Extraction.APIKey == "" {
			config.Extraction.APIKey = apiKey
		}
	}

	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		config.Store.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Store.DSN = dsn
	}
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
}
