package symbolic_test

import (
	"testing"
	"testing/quick"

	"codegraph/internal/symbolic"
	"codegraph/internal/types"
)

func TestParseInheritanceWithTruth(t *testing.T) {
	stmt, err := symbolic.Parse("<button --> Interactive> {0.9 0.8}")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if stmt.Shape != types.ShapeInheritance {
		t.Fatalf("Shape = %v, want inheritance", stmt.Shape)
	}
	if stmt.Subject.Atom != "button" || stmt.Predicate.Atom != "Interactive" {
		t.Fatalf("subject/predicate = %q/%q", stmt.Subject.Atom, stmt.Predicate.Atom)
	}
	if stmt.Truth == nil || stmt.Truth.Frequency != 0.9 || stmt.Truth.Confidence != 0.8 {
		t.Fatalf("Truth = %+v, want {0.9 0.8}", stmt.Truth)
	}
}

func TestRoundTripLiteral(t *testing.T) {
	const literal = "<button --> Interactive> {0.9 0.8}"
	stmt, err := symbolic.Parse(literal)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got := symbolic.Print(stmt); got != literal {
		t.Fatalf("Print(Parse(s)) = %q, want %q", got, literal)
	}
}

func TestParseSimilarity(t *testing.T) {
	stmt, err := symbolic.Parse("<material-ui.Button <-> chakra.Button>")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if stmt.Shape != types.ShapeSimilarity {
		t.Fatalf("Shape = %v, want similarity", stmt.Shape)
	}
	if stmt.Subject.Atom != "material-ui.Button" || stmt.Predicate.Atom != "chakra.Button" {
		t.Fatalf("subject/predicate = %q/%q", stmt.Subject.Atom, stmt.Predicate.Atom)
	}
}

func TestParseImplication(t *testing.T) {
	stmt, err := symbolic.Parse("<IsModal ==> HasOverlay>")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if stmt.Shape != types.ShapeImplication {
		t.Fatalf("Shape = %v, want implication", stmt.Shape)
	}
}

func TestParseInstance(t *testing.T) {
	stmt, err := symbolic.Parse("{primary_button_42} --> Button")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if stmt.Shape != types.ShapeInstance {
		t.Fatalf("Shape = %v, want instance", stmt.Shape)
	}
	if stmt.Subject.Atom != "primary_button_42" || stmt.Predicate.Atom != "Button" {
		t.Fatalf("subject/predicate = %q/%q", stmt.Subject.Atom, stmt.Predicate.Atom)
	}
}

func TestParseProperty(t *testing.T) {
	stmt, err := symbolic.Parse("button --> [disabled]")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if stmt.Shape != types.ShapeProperty {
		t.Fatalf("Shape = %v, want property", stmt.Shape)
	}
	if stmt.Subject.Atom != "button" || stmt.Predicate.Atom != "disabled" {
		t.Fatalf("subject/predicate = %q/%q", stmt.Subject.Atom, stmt.Predicate.Atom)
	}
}

func TestParsePunctuationMarkers(t *testing.T) {
	cases := []struct {
		input string
		punct types.Punctuation
	}{
		{"<a --> b>.", types.PunctuationJudgement},
		{"<a --> b>?", types.PunctuationQuestion},
		{"<a --> b>!", types.PunctuationGoal},
	}
	for _, c := range cases {
		stmt, err := symbolic.Parse(c.input)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", c.input, err)
		}
		if stmt.Punctuation != c.punct {
			t.Fatalf("Parse(%q).Punctuation = %v, want %v", c.input, stmt.Punctuation, c.punct)
		}
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"<a -- b>",
		"<a --> b",
		"a --> ",
		"<a --> b> {1.5 0.5}",
		"<a --> b> {0.5 1.0}",
	}
	for _, in := range cases {
		_, err := symbolic.Parse(in)
		if err == nil {
			t.Fatalf("Parse(%q) expected error, got nil", in)
		}
		if _, ok := err.(*symbolic.MalformedStatementError); !ok {
			t.Fatalf("Parse(%q) error is not *MalformedStatementError: %v", in, err)
		}
	}
}

func TestTermsExtractsAtoms(t *testing.T) {
	stmt, err := symbolic.Parse("<button --> Interactive>")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	terms := symbolic.Terms(stmt)
	if len(terms) != 2 {
		t.Fatalf("Terms() = %v, want 2 entries", terms)
	}
}

func TestHumanise(t *testing.T) {
	stmt, err := symbolic.Parse("<button --> Interactive>")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	got := symbolic.Humanise(stmt)
	want := "button is a kind of Interactive"
	if got != want {
		t.Fatalf("Humanise() = %q, want %q", got, want)
	}
}

// TestRoundTripProperty checks that round-tripping holds across a range of
// generated inheritance statements with truth suffixes, matching spec.md §8's
// round-trip testable property.
func TestRoundTripProperty(t *testing.T) {
	f := func(subjIdx, predIdx uint8, freqPct, confPct uint8) bool {
		atoms := []string{"button", "modal", "input-field", "nav.bar", "card_1"}
		subj := atoms[int(subjIdx)%len(atoms)]
		pred := atoms[int(predIdx)%len(atoms)]
		if subj == pred {
			return true
		}
		freq := float64(int(freqPct)%101) / 100
		conf := float64(int(confPct)%100) / 100

		stmt := &types.Statement{
			Shape:     types.ShapeInheritance,
			Subject:   types.Term{Atom: subj},
			Predicate: types.Term{Atom: pred},
			Truth:     &types.Truth{Frequency: freq, Confidence: conf},
		}
		printed := symbolic.Print(stmt)
		reparsed, err := symbolic.Parse(printed)
		if err != nil {
			t.Logf("Parse(%q) failed: %v", printed, err)
			return false
		}
		return symbolic.Print(reparsed) == printed
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}
