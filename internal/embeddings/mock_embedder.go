package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DeterministicEmbedder produces a reproducible pseudo-embedding from text
// without calling any external model. It is the embedder the server wires in
// (behind a cache) and the one the tests use: the same text always yields the
// same vector, and distinct
// texts sharing vocabulary yield vectors with non-trivial cosine similarity
// (unlike a pure random-hash embedding), which keeps offline-mode retrieval
// tests meaningful.
type DeterministicEmbedder struct {
	dimension int
}

// NewDeterministicEmbedder creates an embedder producing vectors of the given
// dimension.
func NewDeterministicEmbedder(dimension int) *DeterministicEmbedder {
	return &DeterministicEmbedder{dimension: dimension}
}

// Embed implements Embedder. It tokenises text on whitespace/punctuation and
// accumulates each token's hash into a fixed-size vector, then L2-normalises.
func (d *DeterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, d.dimension)
	tokens := tokenize(text)
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		seed := h.Sum64()
		for i := 0; i < d.dimension; i++ {
			// Derive a pseudo-random, deterministic contribution per
			// dimension from the token hash via a simple LCG step.
			seed = seed*6364136223846793005 + 1442695040888963407
			sign := 1.0
			if seed&1 == 0 {
				sign = -1.0
			}
			vec[i] += sign * float64((seed>>1)%1000) / 1000.0
		}
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, d.dimension)
	if norm == 0 {
		return out, nil
	}
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out, nil
}

// Dimension implements Embedder.
func (d *DeterministicEmbedder) Dimension() int { return d.dimension }

// Model implements Embedder.
func (d *DeterministicEmbedder) Model() string { return "deterministic-offline-v1" }

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	return fields
}
