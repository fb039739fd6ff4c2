// Package feedback implements the FeedbackPropagator: it revises an
// entity's truth value in response to a user signal, then propagates an
// attenuated version of that signal outward over SIMILAR_TO and
// CAN_REPLACE edges up to a bounded depth, recording every mutation in an
// append-only audit log.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dominikbraun/graph"

	"codegraph/internal/config"
	"codegraph/internal/errs"
	"codegraph/internal/knowledge"
	"codegraph/internal/storage"
	"codegraph/internal/truth"
	"codegraph/internal/types"
)

// Propagator applies feedback events to entity truth values and propagates
// them through the graph.
type Propagator struct {
	entities storage.EntityRepository
	graph    knowledge.GraphRepository
	log      storage.FeedbackLog
	cfg      config.FeedbackConfig

	// edgeAttenuation is how much a propagated signal's confidence is
	// scaled per hop over each relation type, taken from cfg so that
	// SimilarAttenuation/ReplaceAttenuation stay the single source of
	// truth rather than being duplicated here.
	edgeAttenuation map[types.RelationType]float64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a Propagator over the given stores.
func New(entities storage.EntityRepository, graph knowledge.GraphRepository, log storage.FeedbackLog, cfg config.FeedbackConfig) *Propagator {
	return &Propagator{
		entities: entities,
		graph:    graph,
		log:      log,
		cfg:      cfg,
		edgeAttenuation: map[types.RelationType]float64{
			types.RelationSimilarTo:  cfg.SimilarAttenuation,
			types.RelationCanReplace: cfg.ReplaceAttenuation,
		},
		locks: make(map[string]*sync.Mutex),
	}
}

func (p *Propagator) lockFor(entityID string) *sync.Mutex {
	p.locksMu.Lock()
	defer p.locksMu.Unlock()
	l, ok := p.locks[entityID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[entityID] = l
	}
	return l
}

// Submit applies ev's direct effect and propagates it, retrying transient
// failures up to cfg.MaxRetries before dead-lettering the event.
func (p *Propagator) Submit(ctx context.Context, ev *types.FeedbackEvent) error {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		ev.Attempt = attempt
		if err := p.log.AppendEvent(ctx, ev); err != nil {
			lastErr = err
			continue
		}

		err := p.applyAndPropagate(ctx, ev)
		if err == nil {
			ev.Status = types.FeedbackApplied
			return p.log.UpdateEventStatus(ctx, ev.ID, types.FeedbackApplied, attempt)
		}
		lastErr = err
		if errs.Fatal(classify(err)) {
			break
		}
	}

	ev.Status = types.FeedbackDeadLettered
	if err := p.log.UpdateEventStatus(ctx, ev.ID, types.FeedbackDeadLettered, ev.Attempt); err != nil {
		return err
	}
	return errs.Wrap(errs.KindFeedbackPermanent, fmt.Errorf("feedback event %s exhausted retries: %w", ev.ID, lastErr))
}

func classify(err error) errs.Kind {
	if ce, ok := err.(*errs.CoreError); ok {
		return ce.Kind
	}
	return errs.KindFeedbackTransient
}

func (p *Propagator) applyAndPropagate(ctx context.Context, ev *types.FeedbackEvent) error {
	signal := p.signalTruth(ev.Kind)

	postTruth, delta, err := p.reviseOne(ctx, ev.ElementID, signal, ev.ID, 0)
	if err != nil {
		return err
	}
	ev.PostTruth = &postTruth
	ev.AppliedDelta = &delta

	if p.graph == nil || p.cfg.MaxDepth <= 0 {
		return nil
	}

	// touched is the subgraph this event actually walks, built incrementally
	// as neighbours are discovered. It replaces a plain visited-set: vertex
	// membership doubles as the "already revised" check, and the recorded
	// edges are this event's propagation trace, the same way the teacher's
	// GraphController accumulates a dominikbraun/graph structure as it
	// discovers vertices rather than precomputing one up front.
	touched := graph.New(graph.StringHash, graph.Directed())
	_ = touched.AddVertex(ev.ElementID)
	frontier := []string{ev.ElementID}

	for depth := 1; depth <= p.cfg.MaxDepth; depth++ {
		var next []string
		for relType, alpha := range p.edgeAttenuation {
			// Attenuation compounds with traversal depth as alpha^depth,
			// then scales by the traversed edge's own weight: a neighbor
			// two hops away receives alpha^2 * w_edge of the original
			// signal's confidence, never alpha applied to an
			// already-decayed value from a different edge type along the
			// way.
			depthFactor := math.Pow(alpha, float64(depth))
			for _, id := range frontier {
				rels, err := p.graph.Relations(ctx, id, relType)
				if err != nil {
					continue
				}
				for _, rel := range rels {
					if _, err := touched.Vertex(rel.ToID); err == nil {
						continue
					}
					_ = touched.AddVertex(rel.ToID)
					if err := touched.AddEdge(id, rel.ToID, graph.EdgeAttribute("rel_type", string(relType))); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
						continue
					}
					next = append(next, rel.ToID)
					weight := rel.Weight
					if weight <= 0 {
						weight = 1
					}
					attenuated, err := truth.Decay(signal, depthFactor*weight)
					if err != nil {
						continue
					}
					if _, _, err := p.reviseOne(ctx, rel.ToID, attenuated, ev.ID, depth); err != nil {
						continue
					}
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}
	return nil
}

// reviseOne revises a single entity's truth value with signal and appends
// the audit row. Truth mutation and audit append happen under the
// entity's lock, in that order, so a reader of the log never observes a
// revision with no corresponding audit row.
func (p *Propagator) reviseOne(ctx context.Context, entityID string, signal truth.Value, eventID string, depth int) (types.Truth, truth.Value, error) {
	lock := p.lockFor(entityID)
	lock.Lock()
	defer lock.Unlock()

	current, err := p.entities.Get(ctx, entityID)
	if err != nil {
		return types.Truth{}, truth.Value{}, errs.Wrap(errs.KindEntityNotFound, err)
	}

	revised, err := truth.Revision(truth.Value{F: current.Truth.Frequency, C: current.Truth.Confidence}, signal)
	if err != nil {
		return types.Truth{}, truth.Value{}, errs.Wrap(errs.KindInvalidTruthValue, err)
	}
	newTruth := types.Truth{Frequency: revised.F, Confidence: revised.C}

	pre, err := p.entities.UpdateTruth(ctx, entityID, newTruth)
	if err != nil {
		return types.Truth{}, truth.Value{}, errs.Wrap(errs.KindFeedbackTransient, err)
	}

	if err := p.log.AppendRevision(ctx, &types.RevisionRecord{
		EntityID:  entityID,
		PreTruth:  pre,
		PostTruth: newTruth,
		EventID:   eventID,
		Depth:     depth,
		At:        time.Now(),
	}); err != nil {
		return types.Truth{}, truth.Value{}, errs.Wrap(errs.KindFeedbackTransient, err)
	}

	return newTruth, signal, nil
}

func (p *Propagator) signalTruth(kind types.FeedbackKind) truth.Value {
	if kind == types.FeedbackPositive {
		return truth.Value{F: 1.0, C: p.cfg.PositiveConfidence}
	}
	return truth.Value{F: 0.0, C: p.cfg.NegativeConfidence}
}

// History returns the audit trail for a single entity, oldest first.
func (p *Propagator) History(ctx context.Context, entityID string) ([]types.RevisionRecord, error) {
	return p.log.History(ctx, entityID)
}
