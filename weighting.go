package shocklet

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// WeightFunc scores a segment of the original series by its magnitude of
// change. The score multiplies the indicator values inside the window that
// produced the segment, ranking sustained large moves above small ones.
type WeightFunc func(segment []float64) (float64, error)

// MaxChange is the dynamic range of the raw segment: max - min.
func MaxChange(segment []float64) (float64, error) {
	if len(segment) == 0 {
		return 0, nil
	}
	lo, hi := segment[0], segment[0]
	for _, v := range segment[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo, nil
}

// MaxRelChange is the dynamic range of the segment's log-returns
// log(x[t+1]/x[t]), measuring relative rather than absolute change. Fails
// with ErrNonPositiveValue if any segment value is <= 0, where log-returns
// are undefined; callers must validate or pre-transform strictly positive
// series before selecting this variant.
func MaxRelChange(segment []float64) (float64, error) {
	if len(segment) < 2 {
		return 0, nil
	}
	for i, v := range segment {
		if v <= 0 {
			return 0, fmt.Errorf("%w: segment[%d] = %v", ErrNonPositiveValue, i, v)
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 1; i < len(segment); i++ {
		r := math.Log(segment[i] / segment[i-1])
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	return hi - lo, nil
}

// ApplyWeights scores each window against the original series and returns a
// copy of the indicator with the values inside each window multiplied by
// that window's weight. The indicator itself is never modified.
func ApplyWeights(indicator, series []float64, windows []Window, weight WeightFunc) ([]float64, error) {
	if weight == nil {
		return nil, fmt.Errorf("%w: nil weighting function", ErrConfiguration)
	}
	out := make([]float64, len(indicator))
	copy(out, indicator)
	for _, w := range windows {
		if w.Start < 0 || w.End >= len(series) {
			return nil, fmt.Errorf("%w: window [%d,%d] outside series of length %d",
				ErrConfiguration, w.Start, w.End, len(series))
		}
		score, err := weight(series[w.Start : w.End+1])
		if err != nil {
			return nil, fmt.Errorf("window [%d,%d]: %w", w.Start, w.End, err)
		}
		for t := w.Start; t <= w.End; t++ {
			out[t] *= score
		}
	}
	return out, nil
}

var (
	weightMu       sync.RWMutex
	weightRegistry = map[string]WeightFunc{}
)

// RegisterWeighting adds a weighting function to the registry. Duplicate
// names are rejected.
func RegisterWeighting(name string, fn WeightFunc) error {
	weightMu.Lock()
	defer weightMu.Unlock()
	if _, ok := weightRegistry[name]; ok {
		return fmt.Errorf("%w: weighting %q already registered", ErrConfiguration, name)
	}
	weightRegistry[name] = fn
	return nil
}

// WeightingByName looks up a registered weighting function.
func WeightingByName(name string) (WeightFunc, error) {
	weightMu.RLock()
	defer weightMu.RUnlock()
	fn, ok := weightRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown weighting %q", ErrConfiguration, name)
	}
	return fn, nil
}

// WeightingNames returns the registered weighting names in sorted order.
func WeightingNames() []string {
	weightMu.RLock()
	defer weightMu.RUnlock()
	names := make([]string, 0, len(weightRegistry))
	for name := range weightRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	for name, fn := range map[string]WeightFunc{
		"max_change":     MaxChange,
		"max_rel_change": MaxRelChange,
	} {
		if err := RegisterWeighting(name, fn); err != nil {
			panic(err)
		}
	}
}
