// Package embedder provides text embedding clients for vector
// representations of facts and entities.
package embedder

import "context"

// Client generates embeddings. Implementations handle batching internally
// based on provider limits.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per text,
	// in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle is a convenience wrapper for one text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector length this client produces.
	Dimensions() int
}

// Config holds embedding client settings.
type Config struct {
	Model      string `json:"model" mapstructure:"model"`
	BaseURL    string `json:"base_url" mapstructure:"base_url"`
	Dimensions int    `json:"dimensions" mapstructure:"dimensions"`
	BatchSize  int    `json:"batch_size" mapstructure:"batch_size"`
}
