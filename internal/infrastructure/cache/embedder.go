// Package cache wraps an embedder with a vector cache keyed by model and text.
// Cache errors never fail a request; they are logged and the provider is used.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/kirillkom/self-healing-rag/internal/core/ports"
)

type CachedEmbedder struct {
	inner ports.Embedder
	cache ports.EmbeddingCache
	model string
}

func NewCachedEmbedder(inner ports.Embedder, cache ports.EmbeddingCache, model string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, model: model}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if vector, ok := e.lookup(ctx, text); ok {
			out[i] = vector
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vectors, err := e.inner.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		// Let the caller's count check report the mismatch.
		return vectors, nil
	}
	for j, i := range missing {
		out[i] = vectors[j]
		e.store(ctx, texts[i], vectors[j])
	}
	return out, nil
}

func (e *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := e.lookup(ctx, text); ok {
		return vector, nil
	}
	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(ctx, text, vector)
	return vector, nil
}

func (e *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	vector, ok, err := e.cache.GetVector(ctx, e.key(text))
	if err != nil {
		slog.Warn("embedding_cache_get_failed", "error", err)
		return nil, false
	}
	return vector, ok
}

func (e *CachedEmbedder) store(ctx context.Context, text string, vector []float32) {
	if err := e.cache.SetVector(ctx, e.key(text), vector); err != nil {
		slog.Warn("embedding_cache_set_failed", "error", err)
	}
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s", e.model, hex.EncodeToString(sum[:]))
}
