// Package cache wraps an Embedder with a lossless in-process text→vector
// cache. A cache hit never reaches the remote backend; misses within a batch
// are forwarded together in one call.
package cache

import (
	"context"
	"sync"

	"github.com/papercomputeco/engram/pkg/embeddings"
)

// Embedder is a caching decorator around another embeddings.Embedder.
type Embedder struct {
	inner embeddings.Embedder

	mu      sync.RWMutex
	vectors map[string][]float32
}

// New wraps inner with a fresh cache.
func New(inner embeddings.Embedder) *Embedder {
	return &Embedder{
		inner:   inner,
		vectors: make(map[string][]float32),
	}
}

// Embed returns the cached vector for text, calling the inner embedder only
// on a miss.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	vec, ok := e.vectors[text]
	e.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.vectors[text] = vec
	e.mu.Unlock()

	return vec, nil
}

// EmbedBatch resolves cached texts locally and forwards the misses to the
// inner embedder in a single call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int

	e.mu.RLock()
	for i, text := range texts {
		if vec, ok := e.vectors[text]; ok {
			results[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	e.mu.RUnlock()

	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	for j, vec := range vectors {
		results[missIdx[j]] = vec
		e.vectors[missTexts[j]] = vec
	}
	e.mu.Unlock()

	return results, nil
}

// Usage reports the inner embedder's counters. Cache hits do not move them.
func (e *Embedder) Usage() embeddings.Usage {
	return e.inner.Usage()
}

// Clear drops every cached vector.
func (e *Embedder) Clear() {
	e.mu.Lock()
	e.vectors = make(map[string][]float32)
	e.mu.Unlock()
}

// Len reports the number of cached texts.
func (e *Embedder) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vectors)
}

// Close closes the inner embedder.
func (e *Embedder) Close() error {
	return e.inner.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
