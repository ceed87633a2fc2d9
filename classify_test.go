package shocklet

import (
	"math"
	"testing"
)

func surfaceOf(rows ...[]float64) *Surface {
	widths := make([]int, len(rows))
	for i := range widths {
		widths[i] = 10 * (i + 1)
	}
	return &Surface{Data: rows, Widths: widths}
}

func TestClassifyConstantIndicator(t *testing.T) {
	row := make([]float64, 100)
	for i := range row {
		row[i] = 5
	}
	extrema, indicator, gate := ClassifyCusps(surfaceOf(row), DefaultClassifierConfig())
	if len(extrema) != 0 {
		t.Fatalf("constant indicator flagged %d extrema", len(extrema))
	}
	for i, v := range indicator {
		if v != 5 {
			t.Fatalf("indicator[%d] = %v, want 5", i, v)
		}
	}
	for i, g := range gate {
		if g {
			t.Fatalf("gate[%d] open on constant indicator", i)
		}
	}
	if windows := MakeComponents(gate, 0); len(windows) != 0 {
		t.Fatalf("constant indicator produced %d windows", len(windows))
	}
}

func TestClassifyNegativeResponsesExcluded(t *testing.T) {
	row := make([]float64, 50)
	for i := range row {
		row[i] = -float64(i + 1)
	}
	extrema, indicator, _ := ClassifyCusps(surfaceOf(row), DefaultClassifierConfig())
	if len(extrema) != 0 {
		t.Fatalf("negative-only surface flagged %d extrema", len(extrema))
	}
	for i, v := range indicator {
		if v != 0 {
			t.Fatalf("indicator[%d] = %v, want 0", i, v)
		}
	}
}

func TestClassifyBlock(t *testing.T) {
	row := make([]float64, 100)
	for i := 40; i < 60; i++ {
		row[i] = 10
	}
	extrema, _, gate := ClassifyCusps(surfaceOf(row), DefaultClassifierConfig())

	if len(extrema) != 20 || extrema[0] != 40 || extrema[19] != 59 {
		t.Fatalf("extrema = %v, want 40..59", extrema)
	}
	for i, g := range gate {
		want := i >= 40 && i <= 59
		if g != want {
			t.Fatalf("gate[%d] = %v, want %v", i, g, want)
		}
	}
	windows := MakeComponents(gate, 0)
	if len(windows) != 1 || windows[0] != (Window{Start: 40, End: 59}) {
		t.Fatalf("windows = %v, want [{40 59}]", windows)
	}
}

func TestClassifyRolling(t *testing.T) {
	row := make([]float64, 200)
	for i := range row {
		row[i] = 1
	}
	for i := 90; i < 95; i++ {
		row[i] = 10
	}
	cfg := DefaultClassifierConfig()
	cfg.StatMode = StatRolling
	cfg.StatWindow = 50

	extrema, _, _ := ClassifyCusps(surfaceOf(row), cfg)
	if len(extrema) != 5 {
		t.Fatalf("extrema = %v, want exactly the 5 spike indices", extrema)
	}
	for i, e := range extrema {
		if e != 90+i {
			t.Fatalf("extrema = %v, want 90..94", extrema)
		}
	}
}

func TestClassifySumsAcrossWidths(t *testing.T) {
	a := make([]float64, 30)
	b := make([]float64, 30)
	a[10], b[10] = 3, 4
	b[11] = -2 // must not subtract
	_, indicator, _ := ClassifyCusps(surfaceOf(a, b), DefaultClassifierConfig())
	if indicator[10] != 7 {
		t.Fatalf("indicator[10] = %v, want 7", indicator[10])
	}
	if indicator[11] != 0 {
		t.Fatalf("indicator[11] = %v, want 0", indicator[11])
	}
}

func TestIndicatorOf(t *testing.T) {
	row := []float64{-1, 2, -3, 4}
	indicator := IndicatorOf(surfaceOf(row))
	want := []float64{0, 2, 0, 4}
	for i := range want {
		if math.Abs(indicator[i]-want[i]) > 1e-15 {
			t.Fatalf("indicator[%d] = %v, want %v", i, indicator[i], want[i])
		}
	}
}

func TestStatModeString(t *testing.T) {
	if StatGlobal.String() != "global" || StatRolling.String() != "rolling" {
		t.Fatalf("unexpected StatMode strings: %q %q", StatGlobal, StatRolling)
	}
}
