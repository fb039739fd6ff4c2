package reasoner

import (
	"context"
	"testing"
	"time"

	"codegraph/internal/types"
)

func stmt(subj string, shape types.Shape, pred string, f, c float64) types.Statement {
	return types.Statement{
		Shape:     shape,
		Subject:   types.Term{Atom: subj},
		Predicate: types.Term{Atom: pred},
		Truth:     &types.Truth{Frequency: f, Confidence: c},
	}
}

func TestRuleBasedReasonerDerivesTransitiveInheritance(t *testing.T) {
	r := newRuleBasedReasoner()
	in := []types.Statement{
		stmt("a", types.ShapeInheritance, "b", 0.9, 0.8),
		stmt("b", types.ShapeInheritance, "c", 0.8, 0.7),
	}
	derived, used := r.infer(context.Background(), in, 5)
	if used == 0 {
		t.Fatal("expected at least one round to run")
	}
	found := false
	for _, d := range derived {
		if d.Shape == types.ShapeInheritance && d.Subject.Atom == "a" && d.Predicate.Atom == "c" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected derived <a --> c>, got %+v", derived)
	}
}

func TestRuleBasedReasonerStopsWhenNothingNew(t *testing.T) {
	r := newRuleBasedReasoner()
	in := []types.Statement{
		stmt("a", types.ShapeInheritance, "b", 0.9, 0.8),
	}
	_, used := r.infer(context.Background(), in, 50)
	if used >= 50 {
		t.Fatalf("used = %d, expected early termination well below the cycle bound", used)
	}
}

func TestClientDegradesWhenReasonerUnreachable(t *testing.T) {
	c := New(Config{
		Host:                    "127.0.0.1",
		Port:                    1, // nothing listens here
		InferenceCycles:         5,
		InferenceTimeout:        20 * time.Millisecond,
		CircuitBreakerThreshold: 1,
		CircuitResetTimeout:     time.Minute,
	}, nil)

	in := []types.Statement{
		stmt("a", types.ShapeInheritance, "b", 0.9, 0.8),
		stmt("b", types.ShapeInheritance, "c", 0.8, 0.7),
	}
	res, err := c.Query(context.Background(), in, 5)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected Degraded=true when the reasoner is unreachable")
	}
	if len(res.Derived) == 0 {
		t.Fatal("expected the offline substitute to still derive something")
	}
}

func TestClientStatsReflectsOpenCircuit(t *testing.T) {
	c := New(Config{
		Host:                    "127.0.0.1",
		Port:                    1,
		InferenceTimeout:        10 * time.Millisecond,
		CircuitBreakerThreshold: 1,
		CircuitResetTimeout:     time.Minute,
	}, nil)
	_, _ = c.Query(context.Background(), nil, 1)
	if c.Stats().ConsecutiveFailures == 0 {
		t.Fatal("expected at least one recorded failure after an unreachable query")
	}
}
