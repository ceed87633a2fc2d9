package shocklet

import (
	"errors"
	"math"
	"testing"
)

func TestMaxChange(t *testing.T) {
	got, err := MaxChange([]float64{1, 4, 2, 9, 3})
	if err != nil {
		t.Fatalf("max_change: %v", err)
	}
	if got != 8 {
		t.Fatalf("got %v, want 8", got)
	}
	if got, _ := MaxChange(nil); got != 0 {
		t.Fatalf("empty segment: got %v, want 0", got)
	}
	// Order must not matter, only the range.
	a, _ := MaxChange([]float64{9, 1})
	b, _ := MaxChange([]float64{1, 9})
	if a != b {
		t.Fatalf("range is order-sensitive: %v vs %v", a, b)
	}
}

func TestMaxRelChange(t *testing.T) {
	got, err := MaxRelChange([]float64{1, 2, 4, 2})
	if err != nil {
		t.Fatalf("max_rel_change: %v", err)
	}
	// Log-returns are ln 2, ln 2, -ln 2; their range is 2 ln 2.
	if math.Abs(got-2*math.Log(2)) > 1e-12 {
		t.Fatalf("got %v, want %v", got, 2*math.Log(2))
	}

	if _, err := MaxRelChange([]float64{1, 0, 2}); !errors.Is(err, ErrNonPositiveValue) {
		t.Fatalf("zero value: expected ErrNonPositiveValue, got %v", err)
	}
	if _, err := MaxRelChange([]float64{1, -3, 2}); !errors.Is(err, ErrNonPositiveValue) {
		t.Fatalf("negative value: expected ErrNonPositiveValue, got %v", err)
	}
	if got, _ := MaxRelChange([]float64{5}); got != 0 {
		t.Fatalf("single value: got %v, want 0", got)
	}
}

func TestApplyWeights(t *testing.T) {
	indicator := []float64{1, 1, 1, 1, 1}
	series := []float64{0, 0, 5, 10, 0}
	windows := []Window{{Start: 2, End: 3}}

	out, err := ApplyWeights(indicator, series, windows, MaxChange)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := []float64{1, 1, 5, 5, 1}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	for i, v := range indicator {
		if v != 1 {
			t.Fatalf("indicator modified at %d", i)
		}
	}
}

func TestApplyWeightsErrors(t *testing.T) {
	indicator := []float64{1, 1, 1}
	series := []float64{1, 1, 1}

	if _, err := ApplyWeights(indicator, series, nil, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("nil weighting: expected ErrConfiguration, got %v", err)
	}
	bad := []Window{{Start: 1, End: 5}}
	if _, err := ApplyWeights(indicator, series, bad, MaxChange); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("out-of-range window: expected ErrConfiguration, got %v", err)
	}
	// Weighting failures propagate with the window location attached.
	neg := []float64{1, -2, 3}
	if _, err := ApplyWeights(indicator, neg, []Window{{Start: 0, End: 2}}, MaxRelChange); !errors.Is(err, ErrNonPositiveValue) {
		t.Fatalf("expected ErrNonPositiveValue, got %v", err)
	}
}

func TestWeightingRegistry(t *testing.T) {
	if _, err := WeightingByName("no_such_weighting"); !errors.Is(err, ErrConfiguration) {
		t.Fatal("expected error for unknown weighting")
	}
	if err := RegisterWeighting("max_change", MaxChange); err == nil {
		t.Fatal("expected duplicate registration to be rejected")
	}
	names := WeightingNames()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["max_change"] || !found["max_rel_change"] {
		t.Fatalf("registry missing builtins: %v", names)
	}
}
