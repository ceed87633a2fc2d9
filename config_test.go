package shocklet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
kernel:
  name: power_cusp
  args: [3]
  reflection: 1
widths:
  min: 15
  max: 120
  count: 20
classifier:
  b: 1.5
  geval: 0.6
scan_back: 2
weighting: max_rel_change
normalize: true
save: surface,windows
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Kernel.Name != "power_cusp" || len(cfg.Kernel.Args) != 1 || cfg.Kernel.Args[0] != 3 {
		t.Fatalf("kernel = %+v", cfg.Kernel)
	}
	if cfg.Kernel.Reflection != 1 {
		t.Fatalf("reflection = %d, want 1", cfg.Kernel.Reflection)
	}
	if cfg.Widths != (WidthConfig{Min: 15, Max: 120, Count: 20}) {
		t.Fatalf("widths = %+v", cfg.Widths)
	}
	if cfg.Classifier.B != 1.5 || cfg.Classifier.GEval != 0.6 {
		t.Fatalf("classifier = %+v", cfg.Classifier)
	}
	if cfg.ScanBack != 2 || cfg.Weighting != "max_rel_change" || !cfg.Normalize {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Save != SaveSurface|SaveWindows {
		t.Fatalf("save = %v", cfg.Save)
	}
	// Unset classifier knobs pick up defaults.
	if cfg.Classifier.EvalWindow != 21 || cfg.Classifier.StatWindow != 100 {
		t.Fatalf("classifier defaults not applied: %+v", cfg.Classifier)
	}
}

func TestParseConfigErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"bad yaml":       "kernel: [unclosed",
		"unknown kernel": "kernel:\n  name: nope",
		"bad widths":     "kernel:\n  name: haar\nwidths:\n  min: 50\n  max: 20",
		"bad save":       "kernel:\n  name: haar\nsave: bogus",
	} {
		if _, err := ParseConfig([]byte(doc)); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kernel = KernelConfig{Name: "pitchfork", Args: []float64{2}, Reflection: 3}
	cfg.Widths = WidthConfig{Min: 12, Max: 300, Count: 25}
	cfg.ScanBack = 5
	cfg.Save = SaveIndicator | SaveWeighted

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if back.Kernel.Name != cfg.Kernel.Name || back.Kernel.Reflection != cfg.Kernel.Reflection {
		t.Fatalf("kernel round trip: %+v", back.Kernel)
	}
	if back.Widths != cfg.Widths || back.ScanBack != cfg.ScanBack {
		t.Fatalf("round trip: %+v", back)
	}
	if back.Save != cfg.Save {
		t.Fatalf("save round trip: %v, want %v", back.Save, cfg.Save)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detect.yaml")
	doc := "kernel:\n  name: haar\nwidths:\n  min: 10\n  max: 100\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Kernel.Name != "haar" || cfg.Widths.Max != 100 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Widths.Count != 50 || cfg.Weighting != "max_change" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateClassifierDefaults(t *testing.T) {
	cfg := Config{
		Kernel: KernelConfig{Name: "haar"},
		Widths: WidthConfig{Min: 10, Max: 100},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Classifier.B != 0.75 || cfg.Classifier.GEval != 0.5 {
		t.Fatalf("classifier defaults = %+v", cfg.Classifier)
	}
	if cfg.Classifier.EvalWindow != 21 || cfg.Classifier.StatWindow != 100 {
		t.Fatalf("classifier windows = %+v", cfg.Classifier)
	}
}

func TestSaveSpec(t *testing.T) {
	spec, err := ParseSaveSpec("surface, weighted")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !spec.Has(SaveSurface) || !spec.Has(SaveWeighted) || spec.Has(SaveWindows) {
		t.Fatalf("spec = %v", spec)
	}
	if spec.String() != "surface,weighted" {
		t.Fatalf("String = %q", spec.String())
	}
	if all, _ := ParseSaveSpec("all"); all != SaveAll {
		t.Fatalf("all = %v", all)
	}
	if all, _ := ParseSaveSpec(""); all != SaveAll {
		t.Fatalf("empty = %v", all)
	}
	if SaveAll.String() != "all" {
		t.Fatalf("SaveAll.String = %q", SaveAll.String())
	}
	if SaveSpec(0).String() != "none" {
		t.Fatalf("zero String = %q", SaveSpec(0).String())
	}
	if _, err := ParseSaveSpec("surface,bogus"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
