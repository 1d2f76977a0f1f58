// Package openai implements pkg/embeddings' Embedder for any
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"context"
	"fmt"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

// Config holds configuration for the OpenAI-compatible embedder.
type Config struct {
	// APIKey authenticates against the endpoint.
	APIKey string

	// BaseURL overrides the endpoint URL. Empty means api.openai.com.
	BaseURL string

	// Model is the embedding model name.
	Model string

	// Dimensions requests a specific output dimension where the model
	// supports it. Zero sends no dimension hint.
	Dimensions int
}

// Embedder wraps an OpenAI-compatible embeddings API.
type Embedder struct {
	client     *goopenai.Client
	model      string
	dimensions int

	mu    sync.Mutex
	usage embeddings.Usage
}

// NewEmbedder creates an embedder for the configured endpoint.
func NewEmbedder(cfg Config) *Embedder {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts several texts in one request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	rsp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbedding, err)
	}

	if len(rsp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			embeddings.ErrEmbedding, len(rsp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, item := range rsp.Data {
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", embeddings.ErrEmbedding, i)
		}
		vectors[i] = item.Embedding
	}

	e.mu.Lock()
	e.usage.Calls++
	e.usage.Tokens += rsp.Usage.TotalTokens
	e.mu.Unlock()

	return vectors, nil
}

// Usage reports accumulated counters.
func (e *Embedder) Usage() embeddings.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
