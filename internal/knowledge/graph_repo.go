package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"codegraph/internal/types"
)

// GraphMatch is one structural-traversal hit: the entity, its hop distance
// from the seed (Depth), and a score of 1/(1+Depth), or 1.0 for a direct term
// hit. Edge weights do not enter the score.
type GraphMatch struct {
	EntityID string
	Depth    int
	Score    float64
}

// GraphStats summarises the graph repository's current contents for the
// graph_stats operation.
type GraphStats struct {
	TotalEntities  int
	TotalRelations int
	ByCategory     map[string]int
	ByDesignSystem map[string]int
	AvgDegree      float64
}

// GraphRepository is the graph channel's storage contract: a property graph
// of :Element nodes connected by typed edges (SIMILAR_TO, CAN_REPLACE,
// HAS_CATEGORY, USES_DESIGN_SYSTEM, DERIVED_FROM).
type GraphRepository interface {
	Get(ctx context.Context, id string) (*types.Entity, error)
	UpsertEntity(ctx context.Context, e *types.Entity) error
	UpsertRelation(ctx context.Context, r *types.Relation) error
	// Neighbors returns entities reachable from entityID within maxDepth
	// hops over the given relation types.
	Neighbors(ctx context.Context, entityID string, types []types.RelationType, maxDepth int) ([]GraphMatch, error)
	// Relations returns the outgoing relations of the given type from entityID,
	// used by the feedback propagator to drive BFS attenuation.
	Relations(ctx context.Context, entityID string, relType types.RelationType) ([]types.Relation, error)
	// QueryByTerms returns entities whose category or design_system matches
	// one of terms, plus their SIMILAR_TO/CAN_REPLACE neighbours within
	// depth 2 — the graph channel's seed-expansion query.
	QueryByTerms(ctx context.Context, terms []string, relTypes []types.RelationType) ([]GraphMatch, error)
	Stats(ctx context.Context) (GraphStats, error)
	Healthy(ctx context.Context) bool
	Close(ctx context.Context) error
}

// Neo4jGraphRepository implements GraphRepository over Neo4j.
type Neo4jGraphRepository struct {
	client *neo4jClient
}

// NewNeo4jGraphRepository dials and verifies connectivity to a Neo4j instance.
func NewNeo4jGraphRepository(cfg Neo4jConfig) (*Neo4jGraphRepository, error) {
	c, err := newNeo4jClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Neo4jGraphRepository{client: c}, nil
}

// UpsertEntity implements GraphRepository.
func (r *Neo4jGraphRepository) UpsertEntity(ctx context.Context, e *types.Entity) error {
	const query = `
		MERGE (n:Element {id: $id})
		SET n.name = $name,
		    n.category = $category,
		    n.design_system = $design_system,
		    n.tags = $tags,
		    n.truth_frequency = $truth_frequency,
		    n.truth_confidence = $truth_confidence,
		    n.updated_at = $updated_at
	`
	params := map[string]any{
		"id":               e.ID,
		"name":             e.Name,
		"category":         string(e.Category),
		"design_system":    string(e.DesignSystem),
		"tags":             e.Tags,
		"truth_frequency":  e.Truth.Frequency,
		"truth_confidence": e.Truth.Confidence,
		"updated_at":       e.UpdatedAt,
	}
	_, err := r.client.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	if err != nil {
		return fmt.Errorf("knowledge: upsert entity failed: %w", err)
	}
	return nil
}

// UpsertRelation implements GraphRepository.
func (r *Neo4jGraphRepository) UpsertRelation(ctx context.Context, rel *types.Relation) error {
	query := fmt.Sprintf(`
		MATCH (a:Element {id: $from_id}), (b:Element {id: $to_id})
		MERGE (a)-[rel:%s]->(b)
		SET rel.weight = $weight, rel.created_at = $created_at
	`, string(rel.Type))
	params := map[string]any{
		"from_id":    rel.FromID,
		"to_id":      rel.ToID,
		"weight":     rel.Weight,
		"created_at": rel.CreatedAt,
	}
	_, err := r.client.executeWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	if err != nil {
		return fmt.Errorf("knowledge: upsert relation failed: %w", err)
	}
	return nil
}

// Neighbors implements GraphRepository with a variable-length Cypher path
// bounded by maxDepth, restricted to the given relation types.
func (r *Neo4jGraphRepository) Neighbors(ctx context.Context, entityID string, relTypes []types.RelationType, maxDepth int) ([]GraphMatch, error) {
	if maxDepth <= 0 {
		maxDepth = 2
	}
	relFilter := "SIMILAR_TO|CAN_REPLACE|HAS_CATEGORY|USES_DESIGN_SYSTEM|DERIVED_FROM"
	if len(relTypes) > 0 {
		relFilter = ""
		for i, t := range relTypes {
			if i > 0 {
				relFilter += "|"
			}
			relFilter += string(t)
		}
	}
	query := fmt.Sprintf(`
		MATCH p = (a:Element {id: $id})-[:%s*1..%d]-(b:Element)
		WHERE a <> b
		RETURN DISTINCT b.id as id, min(length(p)) as depth
	`, relFilter, maxDepth)

	result, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		var matches []GraphMatch
		for res.Next(ctx) {
			rec := res.Record()
			id, _ := rec.Get("id")
			depth, _ := rec.Get("depth")
			idStr, _ := id.(string)
			depthVal, _ := depth.(int64)
			matches = append(matches, GraphMatch{EntityID: idStr, Depth: int(depthVal), Score: 1.0 / float64(1+depthVal)})
		}
		return matches, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: neighbor traversal failed: %w", err)
	}
	matches, _ := result.([]GraphMatch)
	return matches, nil
}

// Relations implements GraphRepository.
func (r *Neo4jGraphRepository) Relations(ctx context.Context, entityID string, relType types.RelationType) ([]types.Relation, error) {
	query := fmt.Sprintf(`
		MATCH (a:Element {id: $id})-[rel:%s]->(b:Element)
		RETURN b.id as to_id, rel.weight as weight
	`, string(relType))

	result, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		var rels []types.Relation
		for res.Next(ctx) {
			rec := res.Record()
			toID, _ := rec.Get("to_id")
			weight, _ := rec.Get("weight")
			toIDStr, _ := toID.(string)
			weightVal, _ := weight.(float64)
			rels = append(rels, types.Relation{FromID: entityID, ToID: toIDStr, Type: relType, Weight: weightVal})
		}
		return rels, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: relation lookup failed: %w", err)
	}
	rels, _ := result.([]types.Relation)
	return rels, nil
}

// Get implements GraphRepository, reconstructing an Entity from node
// properties set by UpsertEntity.
func (r *Neo4jGraphRepository) Get(ctx context.Context, id string) (*types.Entity, error) {
	const query = `MATCH (n:Element {id: $id}) RETURN n`
	result, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, nil
		}
		node, _ := res.Record().Get("n")
		n, _ := node.(neo4j.Node)
		return &n, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: get entity failed: %w", err)
	}
	node, ok := result.(*neo4j.Node)
	if !ok || node == nil {
		return nil, fmt.Errorf("knowledge: entity %s not found", id)
	}
	props := node.Props
	e := &types.Entity{ID: id}
	if v, ok := props["name"].(string); ok {
		e.Name = v
	}
	if v, ok := props["category"].(string); ok {
		e.Category = types.Category(v)
	}
	if v, ok := props["design_system"].(string); ok {
		e.DesignSystem = types.DesignSystem(v)
	}
	if v, ok := props["truth_frequency"].(float64); ok {
		e.Truth.Frequency = v
	}
	if v, ok := props["truth_confidence"].(float64); ok {
		e.Truth.Confidence = v
	}
	if v, ok := props["updated_at"].(int64); ok {
		e.UpdatedAt = v
	}
	return e, nil
}

// QueryByTerms implements GraphRepository: entities whose category or
// design_system matches one of terms are direct hits (depth 0, score 1),
// then each direct hit's SIMILAR_TO/CAN_REPLACE neighbours within depth 2
// are folded in, keeping the best score seen per entity.
func (r *Neo4jGraphRepository) QueryByTerms(ctx context.Context, terms []string, relTypes []types.RelationType) ([]GraphMatch, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	const query = `
		MATCH (a:Element)
		WHERE a.category IN $terms OR a.design_system IN $terms
		RETURN DISTINCT a.id as id
	`
	result, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"terms": terms})
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			id, _ := res.Record().Get("id")
			idStr, _ := id.(string)
			ids = append(ids, idStr)
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: query by terms failed: %w", err)
	}
	directIDs, _ := result.([]string)

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

// neo4jStatsRow is one row of the grouped entity-count query used by Stats.
type neo4jStatsRow struct {
	category     string
	designSystem string
	count        int
}

// Stats implements GraphRepository.
func (r *Neo4jGraphRepository) Stats(ctx context.Context) (GraphStats, error) {
	stats := GraphStats{ByCategory: map[string]int{}, ByDesignSystem: map[string]int{}}

	rowsResult, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:Element)
			RETURN n.category as category, n.design_system as designSystem, count(*) as cnt
		`, nil)
		if err != nil {
			return nil, err
		}
		var rows []neo4jStatsRow
		for res.Next(ctx) {
			rec := res.Record()
			cat, _ := rec.Get("category")
			ds, _ := rec.Get("designSystem")
			cnt, _ := rec.Get("cnt")
			catStr, _ := cat.(string)
			dsStr, _ := ds.(string)
			cntVal, _ := cnt.(int64)
			rows = append(rows, neo4jStatsRow{category: catStr, designSystem: dsStr, count: int(cntVal)})
		}
		return rows, res.Err()
	})
	if err != nil {
		return stats, fmt.Errorf("knowledge: entity stats failed: %w", err)
	}
	rows, _ := rowsResult.([]neo4jStatsRow)
	for _, row := range rows {
		stats.TotalEntities += row.count
		if row.category != "" {
			stats.ByCategory[row.category] += row.count
		}
		if row.designSystem != "" {
			stats.ByDesignSystem[row.designSystem] += row.count
		}
	}

	relResult, err := r.client.executeRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH ()-[r]->() RETURN count(r) as total`, nil)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return int64(0), res.Err()
		}
		total, _ := res.Record().Get("total")
		totalVal, _ := total.(int64)
		return totalVal, res.Err()
	})
	if err != nil {
		return stats, fmt.Errorf("knowledge: relation stats failed: %w", err)
	}
	totalRelations, _ := relResult.(int64)
	stats.TotalRelations = int(totalRelations)

	if stats.TotalEntities > 0 {
		stats.AvgDegree = float64(stats.TotalRelations*2) / float64(stats.TotalEntities)
	}
	return stats, nil
}

// Healthy implements GraphRepository.
func (r *Neo4jGraphRepository) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.verifyConnectivity(ctx) == nil
}

// Close implements GraphRepository.
func (r *Neo4jGraphRepository) Close(ctx context.Context) error {
	return r.client.close(ctx)
}
