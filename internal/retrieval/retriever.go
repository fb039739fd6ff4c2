// Package retrieval implements the HybridRetriever: a fixed-weight fusion of
// three concurrent channels (dense vector similarity, graph-structural
// traversal, and non-axiomatic symbolic inference) over a QueryPlan.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/config"
	"codegraph/internal/embeddings"
	"codegraph/internal/errs"
	"codegraph/internal/knowledge"
	"codegraph/internal/reasoner"
	"codegraph/internal/storage"
	"codegraph/internal/symbolic"
	"codegraph/internal/truth"
	"codegraph/internal/types"
)

// Result is the ranked outcome of a single retrieval request.
type Result struct {
	Candidates          []types.CandidateScore
	ReasoningExplanation []string // populated only when plan.IncludeReasoning is set
	UnhealthyChannels    []string
}

// Retriever fuses the vector, graph, and symbolic channels.
type Retriever struct {
	vector   knowledge.VectorRepository
	graph    knowledge.GraphRepository
	reasoner *reasoner.Client
	entities storage.EntityRepository

	fusion    config.FusionConfig
	retrieval config.RetrievalConfig
}

// New creates a Retriever over the given channel backends.
func New(vector knowledge.VectorRepository, graph knowledge.GraphRepository, reasonerClient *reasoner.Client, entities storage.EntityRepository, fusion config.FusionConfig, retrievalCfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		vector:    vector,
		graph:     graph,
		reasoner:  reasonerClient,
		entities:  entities,
		fusion:    fusion.Normalized(),
		retrieval: retrievalCfg,
	}
}

type channelScores struct {
	healthy bool
	scores  map[string]float64
	reasons map[string][]types.MatchReason
}

// Retrieve runs all three channels concurrently, fuses their scores with the
// configured weights (renormalized over whichever channels responded), and
// returns a ranked candidate list. It fails only when every channel is
// unhealthy, which errs.KindRetrievalUnavailable marks as fatal.
func (r *Retriever) Retrieve(ctx context.Context, plan *types.QueryPlan) (*Result, error) {
	overscan := plan.Limit * r.retrieval.Overscan
	if overscan <= 0 {
		overscan = r.retrieval.DefaultLimit * r.retrieval.Overscan
	}

	var vectorRes, graphRes, narsRes channelScores
	var reasoningLines []string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vectorRes = r.runVectorChannel(gctx, plan, overscan)
		return nil
	})
	g.Go(func() error {
		graphRes = r.runGraphChannel(gctx, plan, overscan)
		return nil
	})
	g.Go(func() error {
		var lines []string
		narsRes, lines = r.runSymbolicChannel(gctx, plan)
		if plan.IncludeReasoning {
			reasoningLines = lines
		}
		return nil
	})

	// errgroup.Wait only ever returns an error if one of the funcs above
	// does, and none of them do: channel failures are captured as
	// unhealthy channels, not propagated as retrieval errors.
	_ = g.Wait()

	weights, unhealthy := r.effectiveWeights(vectorRes.healthy, graphRes.healthy, narsRes.healthy)
	if len(unhealthy) == 3 {
		return nil, errs.New(errs.KindRetrievalUnavailable, "all retrieval channels are unhealthy")
	}

	candidates, err := r.fuse(ctx, vectorRes, graphRes, narsRes, weights, plan)
	if err != nil {
		return nil, err
	}

	return &Result{
		Candidates:           candidates,
		ReasoningExplanation: reasoningLines,
		UnhealthyChannels:    unhealthy,
	}, nil
}

func (r *Retriever) effectiveWeights(vectorOK, graphOK, narsOK bool) (weights struct{ vector, graph, nars float64 }, unhealthy []string) {
	v, g, n := r.fusion.VectorWeight, r.fusion.GraphWeight, r.fusion.NarsWeight
	if !vectorOK {
		unhealthy = append(unhealthy, "vector")
		v = 0
	}
	if !graphOK {
		unhealthy = append(unhealthy, "graph")
		g = 0
	}
	if !narsOK {
		unhealthy = append(unhealthy, "nars")
		n = 0
	}
	sum := v + g + n
	if sum == 0 {
		return weights, unhealthy
	}
	weights.vector, weights.graph, weights.nars = v/sum, g/sum, n/sum
	return weights, unhealthy
}

func (r *Retriever) runVectorChannel(ctx context.Context, plan *types.QueryPlan, overscan int) channelScores {
	cs := channelScores{scores: map[string]float64{}, reasons: map[string][]types.MatchReason{}}
	if r.vector == nil || len(plan.Embedding) == 0 {
		return cs
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.retrieval.PerChannelTimeoutMS)*time.Millisecond)
	defer cancel()

	if !r.vector.Healthy(ctx) {
		return cs
	}
	matches, err := r.vector.KNN(ctx, plan.Embedding, overscan)
	if err != nil {
		return cs
	}
	cs.healthy = true
	for _, m := range matches {
		cs.scores[m.EntityID] = embeddings.UnitInterval(m.Similarity)
		cs.reasons[m.EntityID] = append(cs.reasons[m.EntityID], types.MatchReason{
			Channel:     "vector",
			Explanation: fmt.Sprintf("cosine similarity %.3f", m.Similarity),
		})
	}
	return cs
}

func (r *Retriever) runGraphChannel(ctx context.Context, plan *types.QueryPlan, overscan int) channelScores {
	cs := channelScores{scores: map[string]float64{}, reasons: map[string][]types.MatchReason{}}
	if r.graph == nil {
		return cs
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.retrieval.PerChannelTimeoutMS)*time.Millisecond)
	defer cancel()

	if !r.graph.Healthy(ctx) {
		return cs
	}

	terms := seedTerms(plan)
	if len(terms) == 0 {
		cs.healthy = true
		return cs
	}
	matches, err := r.graph.QueryByTerms(ctx, terms, nil)
	if err != nil {
		return cs
	}
	cs.healthy = true

	maxScore := 0.0
	for _, m := range matches {
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}
	if maxScore == 0 {
		maxScore = 1.0
	}
	for _, m := range matches {
		normalized := m.Score / maxScore
		cs.scores[m.EntityID] = normalized
		cs.reasons[m.EntityID] = append(cs.reasons[m.EntityID], types.MatchReason{
			Channel:     "graph",
			Explanation: fmt.Sprintf("matched seed terms at depth %d", m.Depth),
		})
		if len(cs.scores) >= overscan {
			break
		}
	}
	return cs
}

func (r *Retriever) runSymbolicChannel(ctx context.Context, plan *types.QueryPlan) (channelScores, []string) {
	cs := channelScores{scores: map[string]float64{}, reasons: map[string][]types.MatchReason{}}
	if r.reasoner == nil || len(plan.Statements) == 0 {
		return cs, nil
	}

	res, err := r.reasoner.Query(ctx, plan.Statements, plan.InferenceCycles)
	if err != nil {
		return cs, nil
	}
	cs.healthy = true

	var lines []string
	for _, d := range res.Derived {
		if !d.Subject.IsAtom() || d.Truth == nil {
			continue
		}
		id := d.Subject.Atom
		expectation := truth.Expectation(truth.Value{F: d.Truth.Frequency, C: d.Truth.Confidence})
		if existing, ok := cs.scores[id]; !ok || expectation > existing {
			cs.scores[id] = expectation
		}
		cs.reasons[id] = append(cs.reasons[id], types.MatchReason{
			Channel:     "nars",
			Explanation: symbolic.Humanise(&d),
		})
		lines = append(lines, fmt.Sprintf("%s (expectation %.3f)", symbolic.Print(&d), expectation))
	}
	return cs, lines
}

// seedTerms extracts the category/design-system terms the graph channel
// seeds its traversal from: the plan's explicit constraints, plus any atom
// appearing as a statement's predicate (e.g. `<button --> Interactive>`
// names "Interactive" as a term to match against HAS_CATEGORY/
// USES_DESIGN_SYSTEM membership).
func seedTerms(plan *types.QueryPlan) []string {
	seen := map[string]bool{}
	var out []string
	add := func(term string) {
		if term != "" && !seen[term] {
			seen[term] = true
			out = append(out, term)
		}
	}
	add(string(plan.Constraints.Category))
	add(string(plan.Constraints.DesignSystem))
	for _, tag := range plan.Constraints.Tags {
		add(tag)
	}
	for _, s := range plan.Statements {
		if s.Predicate.IsAtom() {
			add(s.Predicate.Atom)
		}
	}
	return out
}

func (r *Retriever) fuse(ctx context.Context, vector, graph, nars channelScores, weights struct{ vector, graph, nars float64 }, plan *types.QueryPlan) ([]types.CandidateScore, error) {
	ids := map[string]bool{}
	for id := range vector.scores {
		ids[id] = true
	}
	for id := range graph.scores {
		ids[id] = true
	}
	for id := range nars.scores {
		ids[id] = true
	}

	candidates := make([]types.CandidateScore, 0, len(ids))
	for id := range ids {
		vs, gs, ns := vector.scores[id], graph.scores[id], nars.scores[id]
		fused := weights.vector*vs + weights.graph*gs + weights.nars*ns

		var reasons []types.MatchReason
		reasons = append(reasons, vector.reasons[id]...)
		reasons = append(reasons, graph.reasons[id]...)
		reasons = append(reasons, nars.reasons[id]...)

		var entityTruth types.Truth
		if r.entities != nil {
			if e, err := r.entities.Get(ctx, id); err == nil {
				entityTruth = e.Truth
			}
		}

		candidates = append(candidates, types.CandidateScore{
			EntityID:     id,
			VectorScore:  vs,
			GraphScore:   gs,
			NarsScore:    ns,
			FusedScore:   fused,
			MatchReasons: reasons,
			Truth:        entityTruth,
		})
	}

	candidates = applyConstraints(ctx, r.entities, candidates, plan.Constraints)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		if candidates[i].Truth.Confidence != candidates[j].Truth.Confidence {
			return candidates[i].Truth.Confidence > candidates[j].Truth.Confidence
		}
		return candidates[i].EntityID < candidates[j].EntityID
	})

	limit := plan.Limit
	if limit <= 0 {
		limit = r.retrieval.DefaultLimit
	}
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func applyConstraints(ctx context.Context, entities storage.EntityRepository, candidates []types.CandidateScore, c types.Constraints) []types.CandidateScore {
	if entities == nil || (c.Category == "" && c.DesignSystem == "" && len(c.Tags) == 0) {
		return candidates
	}
	out := make([]types.CandidateScore, 0, len(candidates))
	for _, cand := range candidates {
		e, err := entities.Get(ctx, cand.EntityID)
		if err != nil {
			continue
		}
		if c.Category != "" && e.Category != c.Category {
			continue
		}
		if c.DesignSystem != "" && e.DesignSystem != c.DesignSystem {
			continue
		}
		if len(c.Tags) > 0 && !hasAllTags(e.Tags, c.Tags) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	set := map[string]bool{}
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}
