// Package embeddings defines the text-embedding contract.
package embeddings

import "context"

// Usage holds the counters an embedder accumulates over its lifetime.
type Usage struct {
	// Calls counts remote embedding requests actually issued.
	Calls int

	// Tokens counts provider-reported tokens, when available.
	Tokens int
}

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts several texts in one call where the backend
	// allows it. Results are positionally aligned with texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Usage reports accumulated call and token counters.
	Usage() Usage

	// Close releases any resources held by the embedder.
	Close() error
}
