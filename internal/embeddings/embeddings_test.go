package embeddings_test

import (
	"context"
	"testing"
	"time"

	"codegraph/internal/embeddings"
)

func TestDeterministicEmbedderIsReproducible(t *testing.T) {
	e := embeddings.NewDeterministicEmbedder(64)
	v1, err := e.Embed(context.Background(), "primary button component")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	v2, err := e.Embed(context.Background(), "primary button component")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(v1) != 64 {
		t.Fatalf("len(v1) = %d, want 64", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embeddings not reproducible at index %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestDeterministicEmbedderDistinctTexts(t *testing.T) {
	e := embeddings.NewDeterministicEmbedder(32)
	a, _ := e.Embed(context.Background(), "button")
	b, _ := e.Embed(context.Background(), "modal dialog")
	if embeddings.CosineSimilarity(a, b) > 0.999 {
		t.Fatal("expected distinct texts to produce distinct embeddings")
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	v := []float32{1, 0, 0}
	if s := embeddings.CosineSimilarity(v, v); s < 0.999 {
		t.Fatalf("CosineSimilarity(v,v) = %v, want ~1", s)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if s := embeddings.CosineSimilarity(a, b); s > 0.001 || s < -0.001 {
		t.Fatalf("CosineSimilarity(a,b) = %v, want ~0", s)
	}
}

func TestUnitInterval(t *testing.T) {
	if embeddings.UnitInterval(1) != 1 {
		t.Fatal("UnitInterval(1) should be 1")
	}
	if embeddings.UnitInterval(-1) != 0 {
		t.Fatal("UnitInterval(-1) should be 0")
	}
}

type countingEmbedder struct {
	calls int
	dim   int
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text))}, nil
}
func (c *countingEmbedder) Dimension() int { return c.dim }
func (c *countingEmbedder) Model() string  { return "counting" }

func TestCachedEmbedderServesFromCache(t *testing.T) {
	inner := &countingEmbedder{dim: 1}
	cached := embeddings.NewCachedEmbedder(inner, 10, time.Minute)

	if _, err := cached.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if _, err := cached.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner.calls = %d, want 1 (second call should hit cache)", inner.calls)
	}
}
