package shocklet

import (
	"fmt"
	"math"
)

// Normalize returns a copy of the series rescaled to zero mean and unit
// (population) variance. The input is never modified. A constant series has
// no scale to divide by and returns ErrZeroVariance.
func Normalize(series []float64) ([]float64, error) {
	normed, _, _, err := NormalizeStats(series)
	return normed, err
}

// NormalizeStats is Normalize plus the mean and standard deviation used, so
// a caller can map results back onto the original scale.
func NormalizeStats(series []float64) ([]float64, float64, float64, error) {
	if len(series) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: empty series", ErrZeroVariance)
	}
	mean, std := meanStd(series)
	if std == 0 {
		return nil, mean, 0, fmt.Errorf("%w: all %d values equal %v", ErrZeroVariance, len(series), series[0])
	}
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = (v - mean) / std
	}
	return out, mean, std, nil
}

// Renormalize rescales a series by a previously computed mean and standard
// deviation, e.g. to place a second series on the scale of a reference row.
func Renormalize(series []float64, mean, std float64) ([]float64, error) {
	if std == 0 {
		return nil, fmt.Errorf("%w: std is zero", ErrZeroVariance)
	}
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = (v - mean) / std
	}
	return out, nil
}

// Diff computes the backwards difference x[n] - x[n-1]. With ghost true the
// first element is repeated so the output keeps the input length and the
// difference never looks forward in time; otherwise the output is one
// element shorter.
func Diff(series []float64, ghost bool) []float64 {
	if len(series) == 0 {
		return nil
	}
	if ghost {
		out := make([]float64, len(series))
		prev := series[0]
		for i, v := range series {
			out[i] = v - prev
			prev = v
		}
		return out
	}
	out := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		out[i-1] = series[i] - series[i-1]
	}
	return out
}

// WindowArgmaxes returns, for each window, the index of the maximum data
// value inside it. Used to report a single peak location per detected
// window.
func WindowArgmaxes(windows []Window, data []float64) []int {
	out := make([]int, 0, len(windows))
	for _, w := range windows {
		best, bestVal := w.Start, math.Inf(-1)
		for t := w.Start; t <= w.End && t < len(data); t++ {
			if data[t] > bestVal {
				best, bestVal = t, data[t]
			}
		}
		out = append(out, best)
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(arr []float64) (float64, float64) {
	n := float64(len(arr))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range arr {
		sum += v
	}
	mean := sum / n
	variance := 0.0
	for _, v := range arr {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}
