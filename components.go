package shocklet

// Window is one detected anomaly: a contiguous (after gap absorption)
// inclusive index range over the series.
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of indices covered by the window.
func (w Window) Len() int { return w.End - w.Start + 1 }

// Contains reports whether index t falls inside the window.
func (w Window) Contains(t int) bool { return t >= w.Start && t <= w.End }

// MakeComponents merges gated indices into anomaly windows. Scanning left to
// right, consecutive true indices extend the open window, and a gap of at
// most scanBack false indices is absorbed into it, bridging brief dropouts
// inside one sustained shock. scanBack 0 merges only strictly contiguous
// runs. An isolated single true index is treated as noise and does not form
// a window. Windows are disjoint, sorted by start, and empty for an all-false
// gate.
func MakeComponents(gate []bool, scanBack int) []Window {
	if scanBack < 0 {
		scanBack = 0
	}
	var windows []Window
	open := false
	var start, last int
	flush := func() {
		if open && last > start {
			windows = append(windows, Window{Start: start, End: last})
		}
		open = false
	}
	for t, g := range gate {
		if !g {
			continue
		}
		if open && t-last <= 1+scanBack {
			last = t
			continue
		}
		flush()
		open = true
		start, last = t, t
	}
	flush()
	return windows
}
