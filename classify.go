package shocklet

import "math"

// StatMode selects the variability statistic used by the classifier
// threshold.
type StatMode int

const (
	// StatGlobal uses the standard deviation of the whole indicator signal.
	StatGlobal StatMode = iota
	// StatRolling uses a rolling standard deviation over StatWindow samples
	// centered on each index, making the threshold adapt to local regimes.
	StatRolling
)

func (m StatMode) String() string {
	switch m {
	case StatGlobal:
		return "global"
	case StatRolling:
		return "rolling"
	default:
		return "unknown"
	}
}

// ClassifierConfig tunes the two-stage cusp classifier.
type ClassifierConfig struct {
	// B is the amplitude threshold multiplier: index t is flagged when
	// indicator[t] exceeds the indicator mean by B times the variability
	// statistic. Lower is more sensitive. Default 0.75.
	B float64 `yaml:"b"`

	// GEval is the density threshold in (0, 1): a gate opens at t when the
	// fraction of flagged indices inside the evaluation neighborhood is at
	// least GEval. Suppresses isolated spikes that pass the amplitude test
	// but are not locally dense. Default 0.5.
	GEval float64 `yaml:"geval"`

	// StatMode selects the variability statistic. Default StatGlobal.
	StatMode StatMode `yaml:"stat_mode"`

	// StatWindow is the rolling statistic window size in samples, used only
	// with StatRolling. Default 100.
	StatWindow int `yaml:"stat_window"`

	// EvalWindow is the density evaluation neighborhood size in samples
	// (centered on each index). Default 21.
	EvalWindow int `yaml:"eval_window"`
}

// DefaultClassifierConfig returns the classifier defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		B:          0.75,
		GEval:      0.5,
		StatMode:   StatGlobal,
		StatWindow: 100,
		EvalWindow: 21,
	}
}

func (c *ClassifierConfig) applyDefaults() {
	if c.B == 0 {
		c.B = 0.75
	}
	if c.GEval == 0 {
		c.GEval = 0.5
	}
	if c.StatWindow <= 0 {
		c.StatWindow = 100
	}
	if c.EvalWindow <= 0 {
		c.EvalWindow = 21
	}
}

// ClassifyCusps reduces a transform surface to a per-index indicator, the
// flagged extrema, and a boolean gate.
//
// The indicator at t is the sum over widths of the positive part of the
// surface, so only responses matching the kernel's orientation contribute.
// Index t is flagged as an extremum when indicator[t] - mean(indicator)
// exceeds B times the variability statistic; a constant indicator therefore
// flags nothing, which is a valid no-anomaly outcome, not an error. The gate
// then requires the flagged indices to be locally dense: gate[t] is true when
// at least GEval of the indices within EvalWindow of t are flagged.
func ClassifyCusps(surface *Surface, cfg ClassifierConfig) (extrema []int, indicator []float64, gate []bool) {
	cfg.applyDefaults()
	T := surface.Len()
	indicator = make([]float64, T)
	for _, row := range surface.Data {
		for t, v := range row {
			if v > 0 {
				indicator[t] += v
			}
		}
	}

	flagged := make([]bool, T)
	switch cfg.StatMode {
	case StatRolling:
		half := cfg.StatWindow / 2
		for t := 0; t < T; t++ {
			lo, hi := t-half, t+half
			if lo < 0 {
				lo = 0
			}
			if hi >= T {
				hi = T - 1
			}
			mean, std := meanStd(indicator[lo : hi+1])
			if std > 0 && indicator[t]-mean > cfg.B*std {
				flagged[t] = true
				extrema = append(extrema, t)
			}
		}
	default:
		mean, std := meanStd(indicator)
		if std > 0 {
			for t, v := range indicator {
				if v-mean > cfg.B*std {
					flagged[t] = true
					extrema = append(extrema, t)
				}
			}
		}
	}

	gate = make([]bool, T)
	if len(extrema) == 0 {
		return extrema, indicator, gate
	}

	// Prefix sum of flags so each neighborhood density is O(1).
	prefix := make([]int, T+1)
	for t := 0; t < T; t++ {
		prefix[t+1] = prefix[t]
		if flagged[t] {
			prefix[t+1]++
		}
	}
	half := cfg.EvalWindow / 2
	for t := 0; t < T; t++ {
		lo, hi := t-half, t+half
		if lo < 0 {
			lo = 0
		}
		if hi >= T {
			hi = T - 1
		}
		count := prefix[hi+1] - prefix[lo]
		if float64(count) >= cfg.GEval*float64(hi-lo+1)-1e-12 {
			gate[t] = true
		}
	}
	return extrema, indicator, gate
}

// IndicatorOf is a convenience that computes only the indicator signal from
// a surface, for callers that want the aggregate response without
// classification.
func IndicatorOf(surface *Surface) []float64 {
	T := surface.Len()
	indicator := make([]float64, T)
	for _, row := range surface.Data {
		for t, v := range row {
			indicator[t] += math.Max(v, 0)
		}
	}
	return indicator
}
