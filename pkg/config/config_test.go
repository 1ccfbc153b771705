package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 0.8, cfg.Resolution.FuzzyThreshold)
	assert.Equal(t, 0.9, cfg.Resolution.AutoMergeThreshold)
	assert.Equal(t, 10, cfg.Resolution.MaxChainHops)

	assert.Equal(t, 0.5, cfg.Conflict.LowerBound)
	assert.Equal(t, 0.95, cfg.Conflict.UpperBound)

	assert.Equal(t, 0.25, cfg.Search.Weights.FullText)
	assert.Equal(t, 0.10, cfg.Search.Weights.Confidence)
	assert.Equal(t, 20, cfg.Search.Limit)

	assert.Equal(t, "rule_based", cfg.Extraction.Method)
	assert.True(t, cfg.Extraction.CircuitBreaker.Enabled)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
}

func TestLoadFromValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("store.driver", "postgres")
	viper.Set("store.dsn", "postgres://localhost/chronicle?sslmode=disable")
	viper.Set("resolution.fuzzy_threshold", 0.85)
	viper.Set("search.weights.vector", 0.4)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/chronicle?sslmode=disable", cfg.Store.DSN)
	assert.Equal(t, 0.85, cfg.Resolution.FuzzyThreshold)
	assert.Equal(t, 0.4, cfg.Search.Weights.Vector)
	assert.Equal(t, 0.25, cfg.Search.Weights.FullText, "untouched defaults survive")
}

func TestEnvOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("STORE_DRIVER", "neo4j")
	t.Setenv("NEO4J_URI", "bolt://db.internal:7687")
	t.Setenv("NEO4J_USER", "neo4j")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "neo4j", cfg.Store.Driver)
	assert.Equal(t, "bolt://db.internal:7687", cfg.Store.URI)
	assert.Equal(t, "neo4j", cfg.Store.Username)
	assert.Equal(t, "secret", cfg.Store.Password)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-test", cfg.Extraction.APIKey)
}

func TestEnvDoesNotClobberExplicitKeys(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("embedding.api_key", "sk-explicit")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-explicit", cfg.Embedding.APIKey)
	assert.Equal(t, "sk-env", cfg.Extraction.APIKey)
}
