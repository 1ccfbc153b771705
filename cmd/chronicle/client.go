package chronicle

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chronicle-kb/chronicle"
	"github.com/chronicle-kb/chronicle/pkg/config"
	"github.com/chronicle-kb/chronicle/pkg/embedder"
	"github.com/chronicle-kb/chronicle/pkg/extraction"
	"github.com/chronicle-kb/chronicle/pkg/logger"
	"github.com/chronicle-kb/chronicle/pkg/store"
)

// buildClient assembles a chronicle client from configuration: the backing
// store by driver name, the embedder when enabled, and the extractor by
// method, wrapped in a circuit breaker for remote methods.
func buildClient(cfg *config.Config) (*chronicle.Client, error) {
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	st, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	var embedderClient embedder.Client
	if cfg.Embedding.Enabled {
		if cfg.Embedding.APIKey == "" {
			return nil, fmt.Errorf("embedding enabled but no API key configured")
		}
		embedderClient = embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embedder.Config{
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
		})
	}

	extractor, err := buildExtractor(cfg, log)
	if err != nil {
		return nil, err
	}

	return chronicle.NewClient(st, embedderClient, extractor, cfg, log)
}

func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "memory", "":
		return store.NewMemoryStore(), nil
	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires store.dsn or DATABASE_URL")
		}
		return store.NewPostgresStore(cfg.Store.DSN, cfg.Store.VectorDims)
	case "neo4j":
		if cfg.Store.URI == "" {
			return nil, fmt.Errorf("neo4j driver requires store.uri or NEO4J_URI")
		}
		return store.NewNeo4jStore(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func buildExtractor(cfg *config.Config, log *slog.Logger) (extraction.Method, error) {
	switch cfg.Extraction.Method {
	case "rule_based", "":
		return extraction.NewRules(), nil
	case "llm":
		if cfg.Extraction.APIKey == "" {
			return nil, fmt.Errorf("llm extraction requires an API key")
		}
		llm := extraction.NewLLM(cfg.Extraction.APIKey, extraction.LLMConfig{
			Model:       cfg.Extraction.Model,
			BaseURL:     cfg.Extraction.BaseURL,
			Temperature: cfg.Extraction.Temperature,
		}, log)
		withRetry := extraction.NewRetryMethod(llm, extraction.DefaultRetryConfig(), log)
		if !cfg.Extraction.CircuitBreaker.Enabled {
			return withRetry, nil
		}
		return extraction.NewBreakerMethod(withRetry, extraction.BreakerConfig{
			MaxRequests:      cfg.Extraction.CircuitBreaker.MaxRequests,
			IntervalSeconds:  cfg.Extraction.CircuitBreaker.Interval,
			TimeoutSeconds:   cfg.Extraction.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.Extraction.CircuitBreaker.ReadyToTripRatio,
		}, log), nil
	default:
		return nil, fmt.Errorf("unsupported extraction method: %s", cfg.Extraction.Method)
	}
}
