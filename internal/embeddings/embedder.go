// Package embeddings provides the narrow external embedding interface the
// QueryTranslator depends on, plus a deterministic offline implementation and
// an LRU cache so repeated natural-language queries don't re-embed.
package embeddings

import "context"

// Embedder generates a dense embedding vector from text. Implementations talk
// to an external model; the core only ever depends on this interface.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding dimension this embedder produces.
	Dimension() int

	// Model returns the model identifier, for provenance/logging.
	Model() string
}

// Config holds embedder configuration read from the service's config surface.
type Config struct {
	Enabled   bool
	Provider  string
	Model     string
	APIKey    string
	Dimension int
}
