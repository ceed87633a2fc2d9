package shocklet

import "fmt"

// Result holds the artifacts of one detection run. Only the artifacts
// requested by the run's SaveSpec are populated; the rest are nil.
type Result struct {
	// Surface is the raw transform surface (widths x time).
	Surface *Surface `json:"surface,omitempty"`

	// Indicator is the per-index aggregate response.
	Indicator []float64 `json:"indicator,omitempty"`

	// Extrema are the indices that passed the amplitude threshold.
	Extrema []int `json:"extrema,omitempty"`

	// Windows are the detected anomaly windows, sorted by start.
	Windows []Window `json:"windows,omitempty"`

	// Weighted is the indicator rescaled by each window's weight.
	Weighted []float64 `json:"weighted,omitempty"`
}

// Detector runs series through the transform-and-classify pipeline. It is
// stateless across invocations and safe for concurrent use: every call
// allocates its own arrays and shares nothing but the read-only
// configuration.
type Detector struct {
	cfg    Config
	kernel KernelFunc
	weight WeightFunc
}

// NewDetector validates the configuration and resolves its registry names.
// All ErrConfiguration conditions surface here, before any series is
// touched.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kernel, err := KernelByName(cfg.Kernel.Name)
	if err != nil {
		return nil, err
	}
	weight, err := WeightingByName(cfg.Weighting)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, kernel: kernel, weight: weight}, nil
}

// Config returns a copy of the detector's configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect runs one series through the pipeline: optional normalization, the
// cusplet transform, classification, window building, and weighting,
// stopping as early as the configured SaveSpec allows. The input series is
// never modified. Weighting is always applied to the original (raw) series
// values, not the normalized copy, so window scores keep the caller's units.
func (d *Detector) Detect(series []float64) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty series", ErrInsufficientLength)
	}
	widths, err := d.cfg.resolveWidths(len(series))
	if err != nil {
		return nil, err
	}

	input := series
	if d.cfg.Normalize {
		input, err = Normalize(series)
		if err != nil {
			return nil, err
		}
	}

	surface, err := Cusplet(input, d.kernel, widths, d.cfg.Kernel.Args, NewReflection(d.cfg.Kernel.Reflection))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	save := d.cfg.Save
	if save.Has(SaveSurface) {
		res.Surface = surface
	}
	if !save.Has(SaveIndicator) && !save.Has(SaveWindows) && !save.Has(SaveWeighted) {
		return res, nil
	}

	extrema, indicator, gate := ClassifyCusps(surface, d.cfg.Classifier)
	if save.Has(SaveIndicator) {
		res.Indicator = indicator
		res.Extrema = extrema
	}
	if !save.Has(SaveWindows) && !save.Has(SaveWeighted) {
		return res, nil
	}

	windows := MakeComponents(gate, d.cfg.ScanBack)
	if save.Has(SaveWindows) {
		res.Windows = windows
	}
	if !save.Has(SaveWeighted) {
		return res, nil
	}

	weighted, err := ApplyWeights(indicator, series, windows, d.weight)
	if err != nil {
		return nil, err
	}
	res.Weighted = weighted
	return res, nil
}
