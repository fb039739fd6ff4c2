package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dominikbraun/graph"

	"codegraph/internal/types"
)

// InMemoryGraphRepository implements GraphRepository over a
// github.com/dominikbraun/graph directed graph, the same vertex/edge
// structure the teacher's GraphController builds for Graph-of-Thoughts
// traversal. It is the graph channel's repository when no Neo4j instance is
// configured: a single-process deployment still gets HAS_CATEGORY/
// USES_DESIGN_SYSTEM seed matching and SIMILAR_TO/CAN_REPLACE traversal, at
// the cost of the persistence and horizontal scale Neo4j provides.
type InMemoryGraphRepository struct {
	mu       sync.RWMutex
	g        graph.Graph[string, string]
	entities map[string]*types.Entity
	// edgesByType indexes outgoing edges by (fromID, relType), since
	// dominikbraun/graph's edge properties aren't independently queryable
	// by attribute value without walking every edge.
	edgesByType map[string]map[types.RelationType][]weightedEdge
}

// weightedEdge is one outgoing edge's destination and propagation weight,
// mirroring the "weight" property Neo4jGraphRepository stores on its edges.
type weightedEdge struct {
	to     string
	weight float64
}

// NewInMemoryGraphRepository creates an empty in-memory graph repository.
func NewInMemoryGraphRepository() *InMemoryGraphRepository {
	return &InMemoryGraphRepository{
		g:           graph.New(graph.StringHash, graph.Directed()),
		entities:    map[string]*types.Entity{},
		edgesByType: map[string]map[types.RelationType][]weightedEdge{},
	}
}

func copyEntityForGraph(e *types.Entity) *types.Entity {
	cp := *e
	if e.Tags != nil {
		cp.Tags = append([]string(nil), e.Tags...)
	}
	return &cp
}

// Get implements GraphRepository.
func (r *InMemoryGraphRepository) Get(_ context.Context, id string) (*types.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, fmt.Errorf("knowledge: entity %s not found", id)
	}
	return copyEntityForGraph(e), nil
}

// UpsertEntity implements GraphRepository.
func (r *InMemoryGraphRepository) UpsertEntity(_ context.Context, e *types.Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.g.AddVertex(e.ID); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	r.entities[e.ID] = copyEntityForGraph(e)
	return nil
}

// UpsertRelation implements GraphRepository.
func (r *InMemoryGraphRepository) UpsertRelation(_ context.Context, rel *types.Relation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.g.AddVertex(rel.FromID); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	if err := r.g.AddVertex(rel.ToID); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	if err := r.g.AddEdge(rel.FromID, rel.ToID, graph.EdgeAttribute("rel_type", string(rel.Type))); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return err
	}
	weight := rel.Weight
	if weight <= 0 {
		weight = 1
	}
	if r.edgesByType[rel.FromID] == nil {
		r.edgesByType[rel.FromID] = map[types.RelationType][]weightedEdge{}
	}
	for i, existing := range r.edgesByType[rel.FromID][rel.Type] {
		if existing.to == rel.ToID {
			r.edgesByType[rel.FromID][rel.Type][i].weight = weight
			return nil
		}
	}
	r.edgesByType[rel.FromID][rel.Type] = append(r.edgesByType[rel.FromID][rel.Type], weightedEdge{to: rel.ToID, weight: weight})
	return nil
}

// Neighbors implements GraphRepository via a depth-bounded breadth-first
// walk over the in-memory graph. SIMILAR_TO edges are followed in both
// directions; the other relation types only from FromID to ToID.
func (r *InMemoryGraphRepository) Neighbors(_ context.Context, entityID string, relTypes []types.RelationType, maxDepth int) ([]GraphMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, err := r.g.Vertex(entityID); err != nil {
		return nil, nil
	}

	visited := map[string]bool{entityID: true}
	frontier := []string{entityID}
	var matches []GraphMatch

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, relType := range r.relTypesOrAll(relTypes) {
				var adjacent []string
				for _, edge := range r.edgesByType[id][relType] {
					adjacent = append(adjacent, edge.to)
				}
				if relType == types.RelationSimilarTo {
					for from, byType := range r.edgesByType {
						for _, edge := range byType[relType] {
							if edge.to == id {
								adjacent = append(adjacent, from)
							}
						}
					}
				}
				for _, to := range adjacent {
					if visited[to] {
						continue
					}
					visited[to] = true
					next = append(next, to)
					matches = append(matches, GraphMatch{EntityID: to, Depth: depth, Score: 1.0 / float64(1+depth)})
				}
			}
		}
		frontier = next
	}
	return matches, nil
}

func (r *InMemoryGraphRepository) relTypesOrAll(relTypes []types.RelationType) []types.RelationType {
	if len(relTypes) > 0 {
		return relTypes
	}
	return []types.RelationType{
		types.RelationSimilarTo,
		types.RelationCanReplace,
		types.RelationHasCategory,
		types.RelationUsesDesignSystem,
		types.RelationDerivedFrom,
	}
}

// Relations implements GraphRepository.
func (r *InMemoryGraphRepository) Relations(_ context.Context, entityID string, relType types.RelationType) ([]types.Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Relation
	for _, edge := range r.edgesByType[entityID][relType] {
		out = append(out, types.Relation{FromID: entityID, ToID: edge.to, Type: relType, Weight: edge.weight})
	}
	return out, nil
}

// QueryByTerms implements GraphRepository: it matches terms against each
// entity's category/design_system, then expands each direct hit over
// SIMILAR_TO/CAN_REPLACE up to depth 2, mirroring
// Neo4jGraphRepository.QueryByTerms's seed-expansion semantics.
func (r *InMemoryGraphRepository) QueryByTerms(ctx context.Context, terms []string, relTypes []types.RelationType) ([]GraphMatch, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	termSet := make(map[string]bool, len(terms))
	for _, t := range terms {
		termSet[t] = true
	}

	r.mu.RLock()
	var directIDs []string
	for id, e := range r.entities {
		if termSet[string(e.Category)] || termSet[string(e.DesignSystem)] {
			directIDs = append(directIDs, id)
		}
	}
	r.mu.RUnlock()

	if len(relTypes) == 0 {
		relTypes = []types.RelationType{types.RelationSimilarTo, types.RelationCanReplace}
	}
	best := map[string]GraphMatch{}
	for _, id := range directIDs {
		best[id] = GraphMatch{EntityID: id, Depth: 0, Score: 1.0}
		neighbors, err := r.Neighbors(ctx, id, relTypes, 2)
		if err != nil {
			continue
		}
		for _, n := range neighbors {
			if existing, ok := best[n.EntityID]; !ok || n.Score > existing.Score {
				best[n.EntityID] = n
			}
		}
	}

	matches := make([]GraphMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	return matches, nil
}

// Stats implements GraphRepository.
func (r *InMemoryGraphRepository) Stats(_ context.Context) (GraphStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := GraphStats{ByCategory: map[string]int{}, ByDesignSystem: map[string]int{}}
	stats.TotalEntities = len(r.entities)
	for _, e := range r.entities {
		if e.Category != "" {
			stats.ByCategory[string(e.Category)]++
		}
		if e.DesignSystem != "" {
			stats.ByDesignSystem[string(e.DesignSystem)]++
		}
	}
	for _, byType := range r.edgesByType {
		for _, edges := range byType {
			stats.TotalRelations += len(edges)
		}
	}
	if stats.TotalEntities > 0 {
		stats.AvgDegree = float64(stats.TotalRelations*2) / float64(stats.TotalEntities)
	}
	return stats, nil
}

// Healthy implements GraphRepository; the in-memory repository has no
// external dependency to fail.
func (r *InMemoryGraphRepository) Healthy(_ context.Context) bool { return true }

// Close implements GraphRepository. There is nothing to release.
func (r *InMemoryGraphRepository) Close(_ context.Context) error { return nil }
