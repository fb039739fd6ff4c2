package knowledge_test

import (
	"context"
	"testing"

	"codegraph/internal/knowledge"
	"codegraph/internal/types"
)

func seedEntity(t *testing.T, repo *knowledge.InMemoryGraphRepository, id, category, designSystem string) {
	t.Helper()
	e := &types.Entity{ID: id, Name: id, Category: types.Category(category), DesignSystem: types.DesignSystem(designSystem)}
	if err := repo.UpsertEntity(context.Background(), e); err != nil {
		t.Fatalf("UpsertEntity(%s) failed: %v", id, err)
	}
}

func TestInMemoryGraphRepositoryNeighborsRespectsDepth(t *testing.T) {
	repo := knowledge.NewInMemoryGraphRepository()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d"} {
		seedEntity(t, repo, id, "", "")
	}
	rels := []types.Relation{
		{FromID: "a", ToID: "b", Type: types.RelationSimilarTo},
		{FromID: "b", ToID: "c", Type: types.RelationSimilarTo},
		{FromID: "c", ToID: "d", Type: types.RelationSimilarTo},
	}
	for _, r := range rels {
		if err := repo.UpsertRelation(ctx, &r); err != nil {
			t.Fatalf("UpsertRelation failed: %v", err)
		}
	}

	matches, err := repo.Neighbors(ctx, "a", []types.RelationType{types.RelationSimilarTo}, 2)
	if err != nil {
		t.Fatalf("Neighbors returned error: %v", err)
	}
	byID := map[string]int{}
	for _, m := range matches {
		byID[m.EntityID] = m.Depth
	}
	if depth, ok := byID["b"]; !ok || depth != 1 {
		t.Errorf("b depth = %v, ok=%v, want 1", depth, ok)
	}
	if depth, ok := byID["c"]; !ok || depth != 2 {
		t.Errorf("c depth = %v, ok=%v, want 2", depth, ok)
	}
	if _, ok := byID["d"]; ok {
		t.Error("d is 3 hops away and should not appear within depth 2")
	}
}

func TestInMemoryGraphRepositoryQueryByTermsMatchesCategoryAndExpands(t *testing.T) {
	repo := knowledge.NewInMemoryGraphRepository()
	ctx := context.Background()
	seedEntity(t, repo, "button-1", "actions", "material")
	seedEntity(t, repo, "button-2", "forms", "material")
	if err := repo.UpsertRelation(ctx, &types.Relation{FromID: "button-1", ToID: "button-2", Type: types.RelationSimilarTo}); err != nil {
		t.Fatalf("UpsertRelation failed: %v", err)
	}

	matches, err := repo.QueryByTerms(ctx, []string{"actions"}, nil)
	if err != nil {
		t.Fatalf("QueryByTerms returned error: %v", err)
	}
	byID := map[string]knowledge.GraphMatch{}
	for _, m := range matches {
		byID[m.EntityID] = m
	}
	if m, ok := byID["button-1"]; !ok || m.Depth != 0 {
		t.Errorf("button-1 = %+v, ok=%v, want direct hit at depth 0", m, ok)
	}
	if m, ok := byID["button-2"]; !ok || m.Depth != 1 {
		t.Errorf("button-2 = %+v, ok=%v, want expanded neighbor at depth 1", m, ok)
	}
}

func TestInMemoryGraphRepositoryStats(t *testing.T) {
	repo := knowledge.NewInMemoryGraphRepository()
	ctx := context.Background()
	seedEntity(t, repo, "a", "actions", "material")
	seedEntity(t, repo, "b", "forms", "material")
	if err := repo.UpsertRelation(ctx, &types.Relation{FromID: "a", ToID: "b", Type: types.RelationCanReplace}); err != nil {
		t.Fatalf("UpsertRelation failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalEntities != 2 {
		t.Errorf("TotalEntities = %d, want 2", stats.TotalEntities)
	}
	if stats.TotalRelations != 1 {
		t.Errorf("TotalRelations = %d, want 1", stats.TotalRelations)
	}
	if stats.ByCategory["actions"] != 1 || stats.ByCategory["forms"] != 1 {
		t.Errorf("ByCategory = %+v, want one each of actions/forms", stats.ByCategory)
	}
}

func TestInMemoryGraphRepositoryRelationsRoundTripsWeight(t *testing.T) {
	repo := knowledge.NewInMemoryGraphRepository()
	ctx := context.Background()
	seedEntity(t, repo, "a", "", "")
	seedEntity(t, repo, "b", "", "")
	if err := repo.UpsertRelation(ctx, &types.Relation{FromID: "a", ToID: "b", Type: types.RelationSimilarTo, Weight: 0.8}); err != nil {
		t.Fatalf("UpsertRelation failed: %v", err)
	}

	rels, err := repo.Relations(ctx, "a", types.RelationSimilarTo)
	if err != nil {
		t.Fatalf("Relations returned error: %v", err)
	}
	if len(rels) != 1 || rels[0].Weight != 0.8 {
		t.Fatalf("Relations = %+v, want one relation with weight 0.8", rels)
	}
}

func TestInMemoryGraphRepositoryGetReturnsErrorForMissingEntity(t *testing.T) {
	repo := knowledge.NewInMemoryGraphRepository()
	if _, err := repo.Get(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing entity")
	}
}
