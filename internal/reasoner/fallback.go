package reasoner

import (
	"context"

	"codegraph/internal/truth"
	"codegraph/internal/types"
)

// ruleBasedReasoner is the in-process substitute used whenever the external
// reasoner is unreachable. It runs forward chaining over the supplied
// statements for a bounded number of rounds, deriving new inheritance and
// similarity statements by transitivity. It never consults or mutates external state,
// so it can run with zero setup cost whenever the circuit breaker is open.
type ruleBasedReasoner struct{}

func newRuleBasedReasoner() *ruleBasedReasoner { return &ruleBasedReasoner{} }

// infer derives new statements from the input set, stopping after cycles
// rounds or once a round produces nothing new, whichever comes first.
func (r *ruleBasedReasoner) infer(_ context.Context, statements []types.Statement, cycles int) ([]types.Statement, int) {
	known := make([]types.Statement, len(statements))
	copy(known, statements)
	seen := map[string]bool{}
	for _, s := range known {
		seen[key(s)] = true
	}

	derived := []types.Statement{}
	used := 0
	for round := 0; round < cycles; round++ {
		fresh := r.chainOnce(known)
		if len(fresh) == 0 {
			break
		}
		used = round + 1
		added := false
		for _, s := range fresh {
			k := key(s)
			if !seen[k] {
				seen[k] = true
				known = append(known, s)
				derived = append(derived, s)
				added = true
			}
		}
		if !added {
			break
		}
	}
	return derived, used
}

// chainOnce performs one pass of inheritance transitivity (A-->B, B-->C =>
// A-->C via deduction) and similarity transitivity (A<->B, B<->C => A<->C
// via intersection).
func (r *ruleBasedReasoner) chainOnce(known []types.Statement) []types.Statement {
	var out []types.Statement
	for _, a := range known {
		for _, b := range known {
			if a.Truth == nil || b.Truth == nil {
				continue
			}
			switch {
			case a.Shape == types.ShapeInheritance && b.Shape == types.ShapeInheritance &&
				a.Predicate.IsAtom() && b.Subject.IsAtom() && a.Predicate.Atom == b.Subject.Atom:
				tv, err := truth.Deduction(toValue(*a.Truth), toValue(*b.Truth))
				if err != nil {
					continue
				}
				out = append(out, types.Statement{
					Shape:       types.ShapeInheritance,
					Subject:     a.Subject,
					Predicate:   b.Predicate,
					Truth:       fromValue(tv),
					Punctuation: types.PunctuationJudgement,
				})
			case a.Shape == types.ShapeSimilarity && b.Shape == types.ShapeSimilarity &&
				a.Predicate.IsAtom() && b.Subject.IsAtom() && a.Predicate.Atom == b.Subject.Atom:
				tv, err := truth.Intersection(toValue(*a.Truth), toValue(*b.Truth))
				if err != nil {
					continue
				}
				out = append(out, types.Statement{
					Shape:       types.ShapeSimilarity,
					Subject:     a.Subject,
					Predicate:   b.Predicate,
					Truth:       fromValue(tv),
					Punctuation: types.PunctuationJudgement,
				})
			}
		}
	}
	return out
}

func key(s types.Statement) string {
	subj, pred := "", ""
	if s.Subject.IsAtom() {
		subj = s.Subject.Atom
	}
	if s.Predicate.IsAtom() {
		pred = s.Predicate.Atom
	}
	return string(s.Shape) + "|" + subj + "|" + pred
}

func toValue(t types.Truth) truth.Value {
	return truth.Value{F: t.Frequency, C: t.Confidence}
}

func fromValue(v truth.Value) *types.Truth {
	return &types.Truth{Frequency: v.F, Confidence: v.C}
}
