// Package knowledge provides the vector and graph repositories backing the
// HybridRetriever's vector and graph channels: a chromem-go collection for
// nearest-neighbour search over entity embeddings, and a Neo4j-backed
// property graph for structural traversal.
package knowledge

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ElementsCollection is the fixed chromem-go collection name for UI-element
// embeddings.
const ElementsCollection = "ui_elements"

// VectorMatch is one nearest-neighbour hit.
type VectorMatch struct {
	EntityID   string
	Similarity float64 // cosine similarity in [-1,1]
}

// VectorRepository is the vector channel's storage contract.
type VectorRepository interface {
	// Upsert stores or replaces entityID's embedding.
	Upsert(ctx context.Context, entityID string, embedding []float32, metadata map[string]string) error
	// Delete removes entityID's embedding, if present.
	Delete(ctx context.Context, entityID string) error
	// KNN returns up to k nearest neighbours of query by cosine similarity.
	KNN(ctx context.Context, query []float32, k int) ([]VectorMatch, error)
	// Healthy reports whether the store can currently serve queries.
	Healthy(ctx context.Context) bool
}

// ChromemVectorRepository implements VectorRepository over chromem-go, fixed
// to a single collection and embedding dimension.
type ChromemVectorRepository struct {
	db         *chromem.DB
	dimension  int
	collection string
}

// NewChromemVectorRepository opens (or creates) an in-memory chromem-go
// database. persistPath, when non-empty, makes the store durable across
// restarts.
func NewChromemVectorRepository(persistPath string, dimension int) (*ChromemVectorRepository, error) {
	var db *chromem.DB
	var err error
	if persistPath != "" {
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, fmt.Errorf("knowledge: failed to open persistent vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	if _, err := db.GetOrCreateCollection(ElementsCollection, nil, nil); err != nil {
		return nil, fmt.Errorf("knowledge: failed to create collection: %w", err)
	}

	return &ChromemVectorRepository{db: db, dimension: dimension, collection: ElementsCollection}, nil
}

func (r *ChromemVectorRepository) collectionHandle() (*chromem.Collection, error) {
	c := r.db.GetCollection(r.collection, nil)
	if c == nil {
		return nil, fmt.Errorf("knowledge: collection %q not found", r.collection)
	}
	return c, nil
}

// Upsert implements VectorRepository.
func (r *ChromemVectorRepository) Upsert(ctx context.Context, entityID string, embedding []float32, metadata map[string]string) error {
	if len(embedding) != r.dimension {
		return fmt.Errorf("knowledge: embedding has dimension %d, want %d", len(embedding), r.dimension)
	}
	c, err := r.collectionHandle()
	if err != nil {
		return err
	}
	return c.AddDocument(ctx, chromem.Document{
		ID:        entityID,
		Metadata:  metadata,
		Embedding: embedding,
	})
}

// Delete implements VectorRepository.
func (r *ChromemVectorRepository) Delete(ctx context.Context, entityID string) error {
	c, err := r.collectionHandle()
	if err != nil {
		return err
	}
	return c.Delete(ctx, nil, nil, entityID)
}

// KNN implements VectorRepository.
func (r *ChromemVectorRepository) KNN(ctx context.Context, query []float32, k int) ([]VectorMatch, error) {
	if k <= 0 {
		k = 10
	}
	c, err := r.collectionHandle()
	if err != nil {
		return nil, err
	}
	n := k
	if count := c.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}
	results, err := c.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: vector query failed: %w", err)
	}
	out := make([]VectorMatch, 0, len(results))
	for _, res := range results {
		out = append(out, VectorMatch{EntityID: res.ID, Similarity: float64(res.Similarity)})
	}
	return out, nil
}

// Healthy implements VectorRepository.
func (r *ChromemVectorRepository) Healthy(_ context.Context) bool {
	_, err := r.collectionHandle()
	return err == nil
}
