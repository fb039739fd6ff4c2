package translate_test

import (
	"context"
	"testing"

	"codegraph/internal/embeddings"
	"codegraph/internal/translate"
	"codegraph/internal/types"
)

func TestTranslateExtractsCategoryAndTags(t *testing.T) {
	tr := translate.New(embeddings.NewDeterministicEmbedder(16), translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "find a forms component #required #primary", 10, false)
	if plan.Constraints.Category != types.FamilyForms {
		t.Fatalf("Category = %q, want %q", plan.Constraints.Category, types.FamilyForms)
	}
	if len(plan.Constraints.Tags) != 2 {
		t.Fatalf("Tags = %v, want 2 entries", plan.Constraints.Tags)
	}
}

func TestTranslateExtractsDesignSystem(t *testing.T) {
	tr := translate.New(embeddings.NewDeterministicEmbedder(16), translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "a tailwind button", 10, false)
	if plan.Constraints.DesignSystem != types.DesignSystemTailwind {
		t.Fatalf("DesignSystem = %q, want tailwind", plan.Constraints.DesignSystem)
	}
}

func TestTranslateProducesEmbeddingWhenEmbedderPresent(t *testing.T) {
	tr := translate.New(embeddings.NewDeterministicEmbedder(16), translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "primary button", 10, false)
	if len(plan.Embedding) != 16 {
		t.Fatalf("len(Embedding) = %d, want 16", len(plan.Embedding))
	}
	if len(plan.DegradationFlags) != 0 {
		t.Fatalf("DegradationFlags = %v, want none", plan.DegradationFlags)
	}
}

func TestTranslateDegradesWithNoEmbedder(t *testing.T) {
	tr := translate.New(nil, translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "primary button", 10, false)
	if plan.Embedding != nil {
		t.Fatal("expected nil embedding with no embedder configured")
	}
	found := false
	for _, f := range plan.DegradationFlags {
		if f == "embedding_unavailable" {
			found = true
		}
	}
	if !found {
		t.Fatalf("DegradationFlags = %v, want embedding_unavailable", plan.DegradationFlags)
	}
}

func TestTranslateExtractsReplacesStatement(t *testing.T) {
	tr := translate.New(nil, translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "old-modal replaces legacy-dialog", 10, false)
	var found *types.Statement
	for i := range plan.Statements {
		s := &plan.Statements[i]
		if s.Shape == types.ShapeInheritance && s.Subject.Atom == "old-modal" && s.Predicate.Atom == "legacy-dialog" {
			found = s
		}
	}
	if found == nil {
		t.Fatalf("Statements = %v, want a replaces statement old-modal --> legacy-dialog", plan.Statements)
	}
}

func TestTranslateLexiconExtractsNounCategoryAndAdjectiveProperties(t *testing.T) {
	tr := translate.New(nil, translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "a disabled primary button", 10, false)

	var gotCategory, gotDisabled, gotPrimary bool
	for _, s := range plan.Statements {
		switch {
		case s.Shape == types.ShapeInheritance && s.Subject.Atom == "button" && s.Predicate.Atom == types.FamilyActions:
			gotCategory = true
		case s.Shape == types.ShapeProperty && s.Subject.Atom == "button" && s.Predicate.Atom == "disabled":
			gotDisabled = true
		case s.Shape == types.ShapeProperty && s.Subject.Atom == "button" && s.Predicate.Atom == "primary":
			gotPrimary = true
		}
	}
	if !gotCategory {
		t.Errorf("Statements = %v, want <button --> %s>", plan.Statements, types.FamilyActions)
	}
	if !gotDisabled {
		t.Errorf("Statements = %v, want <button --> [disabled]>", plan.Statements)
	}
	if !gotPrimary {
		t.Errorf("Statements = %v, want <button --> [primary]>", plan.Statements)
	}
}

func TestTranslateLexiconYieldsNoStatementsForUnrecognisedWords(t *testing.T) {
	tr := translate.New(nil, translate.ModeOffline, 50)
	plan := tr.Translate(context.Background(), "xyzzy quux", 10, false)
	if len(plan.Statements) != 0 {
		t.Fatalf("Statements = %v, want none for text with no recognised nouns/adjectives", plan.Statements)
	}
}

func TestTranslateLLMModeReportsDegradation(t *testing.T) {
	tr := translate.New(nil, translate.ModeLLM, 50)
	plan := tr.Translate(context.Background(), "a button similar to material-ui", 10, false)
	found := false
	for _, f := range plan.DegradationFlags {
		if f == "llm_unavailable" {
			found = true
		}
	}
	if !found {
		t.Fatalf("DegradationFlags = %v, want llm_unavailable", plan.DegradationFlags)
	}
}
