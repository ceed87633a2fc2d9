package shocklet

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveSpec selects which artifacts a detection run computes and returns.
// The detector skips every pipeline stage the requested artifacts do not
// need: a surface-only run performs no classification, window building, or
// weighting.
type SaveSpec uint8

const (
	// SaveSurface requests the raw transform surface.
	SaveSurface SaveSpec = 1 << iota
	// SaveIndicator requests the classifier's indicator signal.
	SaveIndicator
	// SaveWindows requests the detected anomaly windows.
	SaveWindows
	// SaveWeighted requests the window-weighted indicator.
	SaveWeighted

	// SaveAll requests every artifact.
	SaveAll = SaveSurface | SaveIndicator | SaveWindows | SaveWeighted
)

// Has reports whether the save set includes the given artifact.
func (s SaveSpec) Has(artifact SaveSpec) bool { return s&artifact != 0 }

func (s SaveSpec) String() string {
	if s == SaveAll {
		return "all"
	}
	var parts []string
	if s.Has(SaveSurface) {
		parts = append(parts, "surface")
	}
	if s.Has(SaveIndicator) {
		parts = append(parts, "indicator")
	}
	if s.Has(SaveWindows) {
		parts = append(parts, "windows")
	}
	if s.Has(SaveWeighted) {
		parts = append(parts, "weighted")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// ParseSaveSpec parses a comma-separated artifact list ("surface,windows")
// or the shorthand "all".
func ParseSaveSpec(s string) (SaveSpec, error) {
	if s == "" || s == "all" {
		return SaveAll, nil
	}
	var spec SaveSpec
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "surface":
			spec |= SaveSurface
		case "indicator":
			spec |= SaveIndicator
		case "windows":
			spec |= SaveWindows
		case "weighted":
			spec |= SaveWeighted
		default:
			return 0, fmt.Errorf("%w: unknown artifact %q", ErrConfiguration, part)
		}
	}
	return spec, nil
}

// WidthConfig describes the kernel width range. The ordered width set is
// evenly spaced between Min and Max inclusive, rounded to integers.
type WidthConfig struct {
	// Min is the smallest kernel width. Must be >= 1 and < Max.
	Min int `yaml:"min"`

	// Max is the largest kernel width. 0 means unset: the detector resolves
	// it to min(500, T/2) for a series of length T.
	Max int `yaml:"max"`

	// Count is the number of widths. Default 50.
	Count int `yaml:"count"`
}

// KernelConfig selects the template family.
type KernelConfig struct {
	// Name is the registry name of the kernel ("haar", "power_cusp", ...).
	Name string `yaml:"name"`

	// Args are the kernel's shape arguments, e.g. the growth exponent.
	Args []float64 `yaml:"args"`

	// Reflection is the symmetry element, reduced modulo 4:
	// 0 identity, 1 time reverse, 2 value negate, 3 both.
	Reflection int `yaml:"reflection"`
}

// Config holds every knob of a detection run.
type Config struct {
	// Kernel selects the template family and orientation.
	Kernel KernelConfig `yaml:"kernel"`

	// Widths describes the width range.
	Widths WidthConfig `yaml:"widths"`

	// Classifier tunes the two-stage threshold.
	Classifier ClassifierConfig `yaml:"classifier"`

	// ScanBack is the window-merge look-back: up to this many false indices
	// between gated runs are absorbed into one window. Default 0.
	ScanBack int `yaml:"scan_back"`

	// Weighting is the registry name of the window scoring function.
	// Default "max_change".
	Weighting string `yaml:"weighting"`

	// Normalize rescales the series to zero mean and unit variance before
	// the transform. Never applied in place.
	Normalize bool `yaml:"normalize"`

	// Save selects the artifacts to compute. Zero value means SaveAll.
	Save SaveSpec `yaml:"-"`

	// SaveSpec is the textual form of Save for YAML configs
	// ("surface,windows" or "all").
	SaveSpec string `yaml:"save"`
}

// DefaultConfig returns a haar-kernel configuration with the documented
// defaults: b 0.75, geval 0.5, scan_back 0, max_change weighting, all
// artifacts.
func DefaultConfig() Config {
	return Config{
		Kernel:     KernelConfig{Name: "haar"},
		Widths:     WidthConfig{Min: 10, Count: 50},
		Classifier: DefaultClassifierConfig(),
		Weighting:  "max_change",
		Save:       SaveAll,
	}
}

// Validate checks the configuration before any computation, resolving the
// textual save spec and registry names. Returns ErrConfiguration on the
// first invalid combination.
func (c *Config) Validate() error {
	if c.Kernel.Name == "" {
		return fmt.Errorf("%w: kernel name is required", ErrConfiguration)
	}
	if _, err := KernelByName(c.Kernel.Name); err != nil {
		return err
	}
	if c.Weighting == "" {
		c.Weighting = "max_change"
	}
	if _, err := WeightingByName(c.Weighting); err != nil {
		return err
	}
	if c.Widths.Min < 1 {
		return fmt.Errorf("%w: widths.min %d must be >= 1", ErrConfiguration, c.Widths.Min)
	}
	if c.Widths.Max != 0 && c.Widths.Min >= c.Widths.Max {
		return fmt.Errorf("%w: widths.min %d must be < widths.max %d", ErrConfiguration, c.Widths.Min, c.Widths.Max)
	}
	if c.Widths.Count == 0 {
		c.Widths.Count = 50
	}
	if c.Widths.Count < 1 {
		return fmt.Errorf("%w: widths.count %d must be >= 1", ErrConfiguration, c.Widths.Count)
	}
	if c.ScanBack < 0 {
		return fmt.Errorf("%w: scan_back %d must be >= 0", ErrConfiguration, c.ScanBack)
	}
	c.Classifier.applyDefaults()
	if c.Classifier.B < 0 {
		return fmt.Errorf("%w: classifier.b %v must be >= 0", ErrConfiguration, c.Classifier.B)
	}
	if c.Classifier.GEval <= 0 || c.Classifier.GEval >= 1 {
		return fmt.Errorf("%w: classifier.geval %v must be in (0, 1)", ErrConfiguration, c.Classifier.GEval)
	}
	if c.SaveSpec != "" {
		spec, err := ParseSaveSpec(c.SaveSpec)
		if err != nil {
			return err
		}
		c.Save = spec
	}
	if c.Save == 0 {
		c.Save = SaveAll
	}
	return nil
}

// resolveWidths materializes the width set for a series of length T,
// applying the default maximum min(500, T/2) when Max is unset.
func (c *Config) resolveWidths(T int) ([]int, error) {
	max := c.Widths.Max
	if max == 0 {
		max = T / 2
		if max > 500 {
			max = 500
		}
		if max <= c.Widths.Min {
			return nil, fmt.Errorf("%w: series length %d, minimum width %d", ErrInsufficientLength, T, c.Widths.Min)
		}
	}
	return MakeWidths(c.Widths.Min, max, c.Widths.Count)
}

// ParseConfig parses a YAML configuration and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid YAML: %v", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Marshal renders the configuration back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	c.SaveSpec = c.Save.String()
	return yaml.Marshal(c)
}
