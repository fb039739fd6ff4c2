package truth_test

import (
	"math"
	"testing"
	"testing/quick"

	"codegraph/internal/truth"
)

func clamp01(x float64) float64 {
	x = math.Abs(math.Mod(x, 1.0))
	return x
}

func clampConfidence(x float64) float64 {
	x = clamp01(x)
	if x >= 1 {
		x = 0.999999
	}
	return x
}

func TestExpectation(t *testing.T) {
	cases := []struct {
		v    truth.Value
		want float64
	}{
		{truth.Value{F: 0.5, C: 0.5}, 0.5},
		{truth.Value{F: 1.0, C: 0.9}, 0.95},
		{truth.Value{F: 0.0, C: 0.9}, 0.05},
	}
	for _, c := range cases {
		got := truth.Expectation(c.v)
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Expectation(%+v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestRevisionLiteral(t *testing.T) {
	// Scenario 3 from spec.md §8: <0.5,0.5> revised with <1.0,0.9>.
	v1 := truth.Value{F: 0.5, C: 0.5}
	v2 := truth.Value{F: 1.0, C: 0.9}

	got, err := truth.Revision(v1, v2)
	if err != nil {
		t.Fatalf("Revision returned error: %v", err)
	}
	if math.Abs(got.F-0.95) > 1e-9 {
		t.Fatalf("F = %v, want 0.95", got.F)
	}
	want := 10.0 / 11.0
	if math.Abs(got.C-want) > 1e-9 {
		t.Fatalf("C = %v, want %v", got.C, want)
	}
}

func TestRevisionCommutative(t *testing.T) {
	f := func(f1, c1, f2, c2 float64) bool {
		v1 := truth.Value{F: clamp01(f1), C: clampConfidence(c1)}
		v2 := truth.Value{F: clamp01(f2), C: clampConfidence(c2)}

		ab, err := truth.Revision(v1, v2)
		if err != nil {
			return true
		}
		ba, err := truth.Revision(v2, v1)
		if err != nil {
			return true
		}
		return math.Abs(ab.F-ba.F) < 1e-9 && math.Abs(ab.C-ba.C) < 1e-9
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func TestRevisionStaysInBounds(t *testing.T) {
	f := func(f1, c1, f2, c2 float64) bool {
		v1 := truth.Value{F: clamp01(f1), C: clampConfidence(c1)}
		v2 := truth.Value{F: clamp01(f2), C: clampConfidence(c2)}

		got, err := truth.Revision(v1, v2)
		if err != nil {
			return true
		}
		if got.F < 0 || got.F > 1 {
			return false
		}
		if got.C < 0 || got.C >= 1 {
			return false
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestDecayIdentityAtOne(t *testing.T) {
	v := truth.Value{F: 0.7, C: 0.6}
	got, err := truth.Decay(v, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != v {
		t.Fatalf("Decay(v, 1.0) = %+v, want %+v", got, v)
	}
}

func TestDecayLowersConfidenceOnly(t *testing.T) {
	v := truth.Value{F: 0.7, C: 0.6}
	got, err := truth.Decay(v, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.F != v.F {
		t.Fatalf("Decay changed frequency: got %v, want %v", got.F, v.F)
	}
	if got.C >= v.C {
		t.Fatalf("Decay did not lower confidence: got %v, want < %v", got.C, v.C)
	}
}

func TestDecayAttenuationLiteral(t *testing.T) {
	// Scenario 4 from spec.md §8: confidence 0.9 decayed by 0.5*0.8 then 0.3^2*1.0.
	root := truth.Value{F: 1.0, C: 0.9}

	depth1, err := truth.Decay(root, 0.5*0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(depth1.C-0.36) > 1e-9 {
		t.Fatalf("depth1 C = %v, want 0.36", depth1.C)
	}

	depth2, err := truth.Decay(root, 0.3*0.3*1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(depth2.C-0.081) > 1e-9 {
		t.Fatalf("depth2 C = %v, want 0.081", depth2.C)
	}
}

func TestDecayRejectsOutOfRangeLambda(t *testing.T) {
	v := truth.Value{F: 0.5, C: 0.5}
	if _, err := truth.Decay(v, 0); err == nil {
		t.Fatal("expected error for lambda == 0")
	}
	if _, err := truth.Decay(v, 1.5); err == nil {
		t.Fatal("expected error for lambda > 1")
	}
}

func TestValidateRejectsInvalidTruthValues(t *testing.T) {
	cases := []truth.Value{
		{F: -0.1, C: 0.5},
		{F: 1.1, C: 0.5},
		{F: 0.5, C: -0.1},
		{F: 0.5, C: 1.0},
	}
	for _, v := range cases {
		if err := truth.Validate(v); err == nil {
			t.Fatalf("Validate(%+v) expected error, got nil", v)
		}
		var invalid *truth.InvalidTruthValueError
		if _, err := truth.Revision(v, truth.Value{F: 0.5, C: 0.5}); err == nil {
			t.Fatalf("Revision with invalid input %+v should error", v)
		} else if !asInvalidTruthValueError(err, &invalid) {
			t.Fatalf("expected InvalidTruthValueError, got %T: %v", err, err)
		}
	}
}

func asInvalidTruthValueError(err error, target **truth.InvalidTruthValueError) bool {
	if e, ok := err.(*truth.InvalidTruthValueError); ok {
		*target = e
		return true
	}
	return false
}

func TestMonotonicApproachToOneUnderRepeatedPositiveFeedback(t *testing.T) {
	v := truth.Value{F: 0.5, C: 0.5}
	positive := truth.Value{F: 1.0, C: 0.9}

	prevC := v.C
	for i := 0; i < 50; i++ {
		next, err := truth.Revision(v, positive)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if next.C < prevC {
			t.Fatalf("confidence decreased at iteration %d: %v -> %v", i, prevC, next.C)
		}
		if next.C >= 1 {
			t.Fatalf("confidence reached or exceeded 1 at iteration %d: %v", i, next.C)
		}
		if next.F > v.F && next.F > 1 {
			t.Fatalf("frequency exceeded 1 at iteration %d", i)
		}
		prevC = next.C
		v = next
	}
	if truth.Expectation(v) < 0.9 {
		t.Fatalf("expected expectation to approach 1 after repeated positive feedback, got %v", truth.Expectation(v))
	}
}

func TestDeductionAbductionInductionIntersectionStayInBounds(t *testing.T) {
	ops := map[string]func(truth.Value, truth.Value) (truth.Value, error){
		"deduction":    truth.Deduction,
		"abduction":    truth.Abduction,
		"induction":    truth.Induction,
		"intersection": truth.Intersection,
	}
	v1 := truth.Value{F: 0.8, C: 0.7}
	v2 := truth.Value{F: 0.6, C: 0.5}
	for name, op := range ops {
		got, err := op(v1, v2)
		if err != nil {
			t.Fatalf("%s returned error: %v", name, err)
		}
		if got.F < 0 || got.F > 1 {
			t.Fatalf("%s: F out of bounds: %v", name, got.F)
		}
		if got.C < 0 || got.C >= 1 {
			t.Fatalf("%s: C out of bounds: %v", name, got.C)
		}
	}
}
