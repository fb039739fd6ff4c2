// Package types defines the core data structures shared across CodeGraph's
// retrieval and feedback components.
//
// Key types:
//   - Entity: a UI component instance stored in the graph and vector index
//   - Relation: a typed edge between entities
//   - Statement: a parsed symbolic-language expression
//   - QueryPlan: the translated form of a natural-language request
//   - CandidateScore: a per-entity, per-request scoring record
//   - FeedbackEvent: a persisted user signal on an entity
package types

import "time"

// Category is one tag from the fixed UI-component ontology.
type Category string

// The ontology groups recognised categories into families; the exact set is
// closed and owned by the ingestion pipeline, but the core validates against
// the family list below so that constraint filtering has a fixed universe.
const (
	FamilyLayout     = "layout"
	FamilyNavigation = "navigation"
	FamilyForms      = "forms"
	FamilyActions    = "actions"
	FamilyDisplay    = "display"
	FamilyFeedback   = "feedback"
	FamilyOverlay    = "overlay"
	FamilyMedia      = "media"
	FamilyTypography = "typography"
	FamilyOther      = "other"
)

// DesignSystem is one of the recognised component families.
type DesignSystem string

const (
	DesignSystemMaterialUI DesignSystem = "material-ui"
	DesignSystemTailwind   DesignSystem = "tailwind"
	DesignSystemChakra     DesignSystem = "chakra"
	DesignSystemBootstrap  DesignSystem = "bootstrap"
	DesignSystemAntDesign  DesignSystem = "ant-design"
	DesignSystemShadcn     DesignSystem = "shadcn"
	DesignSystemCustom     DesignSystem = "custom"
	DesignSystemUnknown    DesignSystem = "unknown"
)

// Truth is an evidential truth-value ⟨f, c⟩: frequency × confidence.
// Invariant (AIKR): 0 ≤ f ≤ 1, 0 ≤ c < 1 — confidence never reaches 1.
type Truth struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
}

// Expectation returns the scalar ranking signal c·(f−0.5)+0.5.
func (t Truth) Expectation() float64 {
	return t.Confidence*(t.Frequency-0.5) + 0.5
}

// RelationType is the edge kind in the property graph.
type RelationType string

const (
	RelationSimilarTo        RelationType = "SIMILAR_TO"
	RelationCanReplace       RelationType = "CAN_REPLACE"
	RelationHasCategory      RelationType = "HAS_CATEGORY"
	RelationUsesDesignSystem RelationType = "USES_DESIGN_SYSTEM"
	RelationDerivedFrom      RelationType = "DERIVED_FROM"
)

// Entity is a UI component instance stored in the graph and vector index.
type Entity struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Category          Category       `json:"category"`
	DesignSystem      DesignSystem   `json:"design_system"`
	Tags              []string       `json:"tags,omitempty"`
	Truth             Truth          `json:"truth"`
	EmbeddingRef      string         `json:"embedding_ref,omitempty"`
	NarseseStatements []string       `json:"narsese_statements,omitempty"`
	CreatedAt         int64          `json:"created_at"`
	UpdatedAt         int64          `json:"updated_at"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Relation is a typed edge between two Entities.
type Relation struct {
	ID        string       `json:"id"`
	FromID    string       `json:"from_id"`
	ToID      string       `json:"to_id"`
	Type      RelationType `json:"type"`
	Weight    float64      `json:"weight"`
	Truth     *Truth       `json:"truth,omitempty"`
	CreatedAt int64        `json:"created_at"`
}

// Shape is the syntactic class of a parsed Statement.
type Shape string

const (
	ShapeInheritance Shape = "inheritance"
	ShapeSimilarity  Shape = "similarity"
	ShapeImplication Shape = "implication"
	ShapeInstance    Shape = "instance"
	ShapeProperty    Shape = "property"
	ShapeGoal        Shape = "goal"
	ShapeQuestion    Shape = "question"
)

// Punctuation marks how a Statement is being asserted.
type Punctuation string

const (
	PunctuationJudgement Punctuation = "judgement"
	PunctuationGoal      Punctuation = "goal"
	PunctuationQuestion  Punctuation = "question"
	PunctuationQuest     Punctuation = "quest"
)

// Term is a leaf atom or a nested Statement; exactly one of Atom/Nested is set.
type Term struct {
	Atom   string     `json:"atom,omitempty"`
	Nested *Statement `json:"nested,omitempty"`
}

// IsAtom reports whether this term is a plain atom rather than a nested statement.
func (t Term) IsAtom() bool { return t.Nested == nil }

// Statement is a parsed symbolic-language expression.
type Statement struct {
	Shape       Shape       `json:"shape"`
	Subject     Term        `json:"subject"`
	Predicate   Term        `json:"predicate"`
	Truth       *Truth      `json:"truth,omitempty"`
	Punctuation Punctuation `json:"punctuation"`
}

// Constraints are lexical/structural filters extracted from a query.
type Constraints struct {
	Category     Category     `json:"category,omitempty"`
	DesignSystem DesignSystem `json:"design_system,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
}

// QueryPlan is the translated, transient form of a natural-language request.
type QueryPlan struct {
	NLText           string      `json:"nl_text"`
	Embedding        []float32   `json:"-"`
	Statements       []Statement `json:"statements"`
	Constraints      Constraints `json:"constraints"`
	Limit            int         `json:"limit"`
	IncludeReasoning bool        `json:"include_reasoning"`
	InferenceCycles  int         `json:"inference_cycles"`

	// DegradationFlags records non-fatal sub-failures during translation
	// (e.g. "embedding_unavailable", "llm_unavailable").
	DegradationFlags []string `json:"degradation_flags,omitempty"`
}

// MatchReason is a one-line, human-readable justification for a candidate.
type MatchReason struct {
	Channel     string `json:"channel"` // "vector" | "graph" | "nars"
	Explanation string `json:"explanation"`
}

// CandidateScore is a transient per-request, per-entity scoring record.
type CandidateScore struct {
	EntityID     string        `json:"entity_id"`
	VectorScore  float64       `json:"vector_score"`
	GraphScore   float64       `json:"graph_score"`
	NarsScore    float64       `json:"nars_score"`
	FusedScore   float64       `json:"fused_score"`
	MatchReasons []MatchReason `json:"match_reasons,omitempty"`
	Truth        Truth         `json:"truth"`
}

// FeedbackKind is the polarity of a user signal.
type FeedbackKind string

const (
	FeedbackPositive FeedbackKind = "positive"
	FeedbackNegative FeedbackKind = "negative"
)

// FeedbackStatus tracks a FeedbackEvent through the propagation queue.
type FeedbackStatus string

const (
	FeedbackPending      FeedbackStatus = "pending"
	FeedbackApplied      FeedbackStatus = "applied"
	FeedbackDeadLettered FeedbackStatus = "dead_lettered"
)

// FeedbackEvent is a persisted user signal on an entity.
type FeedbackEvent struct {
	ID           string         `json:"id"`
	ElementID    string         `json:"element_id"`
	Kind         FeedbackKind   `json:"kind"`
	QueryContext string         `json:"query_context,omitempty"`
	Comment      string         `json:"comment,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	AppliedDelta *Truth         `json:"applied_delta,omitempty"`
	PostTruth    *Truth         `json:"post_truth,omitempty"`
	Status       FeedbackStatus `json:"status"`
	Attempt      int            `json:"attempt"`
}

// RevisionRecord is an append-only audit row produced by FeedbackPropagator.
type RevisionRecord struct {
	EntityID  string    `json:"entity_id"`
	PreTruth  Truth     `json:"pre_truth"`
	PostTruth Truth     `json:"post_truth"`
	EventID   string    `json:"event_id"`
	Depth     int       `json:"depth"`
	At        time.Time `json:"at"`
}
