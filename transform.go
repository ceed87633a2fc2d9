package shocklet

import (
	"fmt"
	"math"
)

// Surface is the cusplet transform output: one row of correlation responses
// per kernel width, each row covering every time index of the input series.
// Immutable after computation.
type Surface struct {
	// Data is indexed [width][time]: Data[j][t] is the response of
	// Widths[j] at time t.
	Data [][]float64

	// Widths are the kernel widths that produced each row, in request order.
	Widths []int
}

// Len returns the time length T of the surface.
func (s *Surface) Len() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

// MakeWidths builds an evenly spaced integer width set between wmin and wmax
// inclusive. Rounding may produce duplicate widths; that is permitted and
// simply weights those scales more heavily in the classifier sum.
func MakeWidths(wmin, wmax, count int) ([]int, error) {
	if wmin < 1 {
		return nil, fmt.Errorf("%w: minimum width %d must be >= 1", ErrConfiguration, wmin)
	}
	if wmin >= wmax {
		return nil, fmt.Errorf("%w: minimum width %d must be < maximum width %d", ErrConfiguration, wmin, wmax)
	}
	if count < 1 {
		return nil, fmt.Errorf("%w: width count %d must be >= 1", ErrConfiguration, count)
	}
	pts := linspace(float64(wmin), float64(wmax), count)
	widths := make([]int, count)
	for i, p := range pts {
		widths[i] = int(math.Round(p))
	}
	return widths, nil
}

// Cusplet cross-correlates the series against the kernel at every requested
// width, producing the (len(widths), len(series)) response surface.
//
// Each template is generated at its width, reflected, and zero-normed before
// correlation. The sliding correlation follows numpy's mode='same': the
// output has the series length, the template is anchored at offset (W-1)/2,
// and positions where the template extends past either boundary contribute
// zero (zero-padding edge policy; responses within half the largest width of
// the boundaries are attenuated accordingly).
//
// Fails with ErrInsufficientLength when the series is shorter than the
// smallest requested width; no partial surface is returned.
func Cusplet(series []float64, kernel KernelFunc, widths []int, args []float64, refl Reflection) (*Surface, error) {
	if kernel == nil {
		return nil, fmt.Errorf("%w: nil kernel", ErrConfiguration)
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("%w: empty width set", ErrConfiguration)
	}
	minWidth := widths[0]
	for _, w := range widths[1:] {
		if w < minWidth {
			minWidth = w
		}
	}
	if minWidth < 1 {
		return nil, fmt.Errorf("%w: width %d must be >= 1", ErrConfiguration, minWidth)
	}
	if minWidth > len(series) {
		return nil, fmt.Errorf("%w: series length %d, smallest width %d", ErrInsufficientLength, len(series), minWidth)
	}

	data := make([][]float64, len(widths))
	for j, w := range widths {
		kern, err := kernel(w, args...)
		if err != nil {
			return nil, err
		}
		if len(kern) != w {
			return nil, fmt.Errorf("%w: kernel returned %d values for width %d", ErrConfiguration, len(kern), w)
		}
		kern = ZeroNorm(refl.Apply(kern))
		data[j] = correlateSame(series, kern)
	}
	return &Surface{Data: data, Widths: append([]int(nil), widths...)}, nil
}

// correlateSame computes the sliding dot product of kern against series with
// numpy mode='same' alignment and zero padding at the boundaries.
func correlateSame(series, kern []float64) []float64 {
	n, m := len(series), len(kern)
	start := (m - 1) / 2
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		lo := t - start
		sum := 0.0
		for k := 0; k < m; k++ {
			i := lo + k
			if i >= 0 && i < n {
				sum += series[i] * kern[k]
			}
		}
		out[t] = sum
	}
	return out
}
