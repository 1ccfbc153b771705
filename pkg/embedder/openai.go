package embedder

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel      = "text-embedding-3-small"
	defaultDimensions = 1536
	defaultBatchSize  = 100
)

// OpenAIEmbedder implements Client against the OpenAI embeddings API or any
// compatible endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates an embedding client. Empty config fields fall
// back to defaults; BaseURL redirects to an OpenAI-compatible server.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.Dimensions <= 0 {
		config.Dimensions = defaultDimensions
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Embed generates embeddings for the texts, splitting into batches at the
// configured batch size.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.config.Model),
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data))
		}
		for _, item := range resp.Data {
			result = append(result, item.Embedding)
		}
	}
	return result, nil
}

// EmbedSingle generates an embedding for one text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embeddings[0], nil
}

// Dimensions returns the configured vector length.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}
