package types

import "testing"

func TestTruthExpectation(t *testing.T) {
	cases := []struct {
		name string
		tr   Truth
		want float64
	}{
		{"neutral", Truth{Frequency: 0.5, Confidence: 0.5}, 0.5},
		{"confident positive", Truth{Frequency: 1.0, Confidence: 0.9}, 0.95},
		{"confident negative", Truth{Frequency: 0.0, Confidence: 0.9}, 0.05},
		{"zero confidence", Truth{Frequency: 1.0, Confidence: 0.0}, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.tr.Expectation()
			if diff := got - c.want; diff < -1e-9 || diff > 1e-9 {
				t.Fatalf("Expectation() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestTermIsAtom(t *testing.T) {
	atom := Term{Atom: "button"}
	if !atom.IsAtom() {
		t.Fatal("expected atom term to report IsAtom() == true")
	}
	nested := Term{Nested: &Statement{Shape: ShapeInheritance}}
	if nested.IsAtom() {
		t.Fatal("expected nested term to report IsAtom() == false")
	}
}
