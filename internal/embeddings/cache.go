package embeddings

import (
	"context"
	"time"

	"codegraph/pkg/cache"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed on the literal
// query text, so repeated natural-language requests don't pay the embedding
// cost twice. This is the supplemented "embedding cache" feature of
// SPEC_FULL.md, grounded on the teacher's pkg/cache.LRU.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.LRU[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size and TTL.
func NewCachedEmbedder(inner Embedder, maxEntries int, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: cache.New[string, []float32](cache.Config{MaxEntries: maxEntries, TTL: ttl}),
	}
}

// Embed implements Embedder, serving from cache when possible.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Put(text, v)
	return v, nil
}

// Dimension implements Embedder.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Model implements Embedder.
func (c *CachedEmbedder) Model() string { return c.inner.Model() }
