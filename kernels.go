package shocklet

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Kernel template shapes are generated on the abscissa linspace(1, 4, W) and
// zero-normed so that responses are comparable across widths: the template is
// rescaled to [-1, 1] and shifted to zero mean before correlation.
const (
	kernelStart = 1.0
	kernelEnd   = 4.0
)

// KernelFunc generates a template shape of the given width. Shape arguments
// are kernel-specific (e.g. the growth exponent for power-law cusps); kernels
// that take none ignore args. The returned slice always has length width.
type KernelFunc func(width int, args ...float64) ([]float64, error)

// Reflection selects one of four symmetry variants of a kernel template,
// covering both directions and mirrored forms of a shock. The four elements
// form the Klein four-group: each element is its own inverse, so applying the
// same reflection twice returns the original template.
type Reflection int

const (
	// ReflectIdentity leaves the template unchanged.
	ReflectIdentity Reflection = iota
	// ReflectTime reverses the template along the time axis.
	ReflectTime
	// ReflectValue negates the template values.
	ReflectValue
	// ReflectTimeValue reverses and negates.
	ReflectTimeValue
)

// NewReflection reduces an arbitrary integer modulo 4 onto the group,
// matching the loose integer convention used by callers of the transform.
func NewReflection(n int) Reflection {
	n %= 4
	if n < 0 {
		n += 4
	}
	return Reflection(n)
}

func (r Reflection) String() string {
	switch r {
	case ReflectIdentity:
		return "identity"
	case ReflectTime:
		return "time_reverse"
	case ReflectValue:
		return "value_negate"
	case ReflectTimeValue:
		return "time_reverse_negate"
	default:
		return "unknown"
	}
}

// Apply returns a transformed copy of the template. The input is never
// modified.
func (r Reflection) Apply(kern []float64) []float64 {
	out := make([]float64, len(kern))
	switch r {
	case ReflectTime:
		for i, v := range kern {
			out[len(kern)-1-i] = v
		}
	case ReflectValue:
		for i, v := range kern {
			out[i] = -v
		}
	case ReflectTimeValue:
		for i, v := range kern {
			out[len(kern)-1-i] = -v
		}
	default:
		copy(out, kern)
	}
	return out
}

// ZeroNorm rescales a template to [-1, 1] and shifts it to zero mean, so a
// flat series produces zero response regardless of kernel width. A constant
// template maps to all zeros.
func ZeroNorm(arr []float64) []float64 {
	out := make([]float64, len(arr))
	if len(arr) == 0 {
		return out
	}
	lo, hi := arr[0], arr[0]
	for _, v := range arr[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return out
	}
	sum := 0.0
	for i, v := range arr {
		out[i] = 2*(v-lo)/(hi-lo) - 1
		sum += out[i]
	}
	mean := sum / float64(len(out))
	for i := range out {
		out[i] -= mean
	}
	return out
}

// linspace returns n evenly spaced points from start to end inclusive.
func linspace(start, end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func needArgs(name string, args []float64, n int) error {
	if len(args) < n {
		return fmt.Errorf("%w: kernel %q requires %d shape argument(s), got %d",
			ErrConfiguration, name, n, len(args))
	}
	return nil
}

// Haar is a step template: constant low then constant high. Models a pure
// level shift. No shape arguments.
func Haar(width int, _ ...float64) ([]float64, error) {
	res := make([]float64, width)
	for i := range res {
		if i < width/2 {
			res[i] = -1
		} else {
			res[i] = 1
		}
	}
	return res, nil
}

// PowerZeroCusp is monomial growth x^b over the first half followed by an
// abrupt drop to zero: the canonical one-sided cusp. Shape argument: exponent
// b >= 0.
func PowerZeroCusp(width int, args ...float64) ([]float64, error) {
	if err := needArgs("power_zero_cusp", args, 1); err != nil {
		return nil, err
	}
	b := args[0]
	if b < 0 {
		return nil, fmt.Errorf("%w: power_zero_cusp exponent must be >= 0, got %v", ErrConfiguration, b)
	}
	x := linspace(kernelStart, kernelEnd, width)
	res := make([]float64, width)
	for i, v := range x {
		if i < width/2 {
			res[i] = math.Pow(v, b)
		}
	}
	return res, nil
}

// PowerCusp is monomial growth followed by monomial decay: a symmetric
// power-law peak built from PowerZeroCusp and its time reverse.
func PowerCusp(width int, args ...float64) ([]float64, error) {
	half, err := PowerZeroCusp(width, args...)
	if err != nil {
		return nil, err
	}
	return addReversed(half), nil
}

// PowerLawZeroCusp is decaying x^-b over the second half, zero over the
// first: the mirrored decay-side building block. Shape argument: exponent
// b >= 0.
func PowerLawZeroCusp(width int, args ...float64) ([]float64, error) {
	if err := needArgs("power_law_zero_cusp", args, 1); err != nil {
		return nil, err
	}
	b := args[0]
	if b < 0 {
		return nil, fmt.Errorf("%w: power_law_zero_cusp exponent must be >= 0, got %v", ErrConfiguration, b)
	}
	x := linspace(kernelStart, kernelEnd, width)
	res := make([]float64, width)
	for i, v := range x {
		if i >= width/2 {
			res[i] = math.Pow(v, -b)
		}
	}
	return res, nil
}

// PowerLawCusp is the symmetric peak built from PowerLawZeroCusp and its
// time reverse.
func PowerLawCusp(width int, args ...float64) ([]float64, error) {
	half, err := PowerLawZeroCusp(width, args...)
	if err != nil {
		return nil, err
	}
	return addReversed(half), nil
}

// ExpZeroCusp is exponential growth e^(a*x) over the first half followed by
// an abrupt drop to zero. Shape argument: rate a.
func ExpZeroCusp(width int, args ...float64) ([]float64, error) {
	if err := needArgs("exp_zero_cusp", args, 1); err != nil {
		return nil, err
	}
	a := args[0]
	x := linspace(kernelStart, kernelEnd, width)
	res := make([]float64, width)
	for i, v := range x {
		if i < width/2 {
			res[i] = math.Exp(a * v)
		}
	}
	return res, nil
}

// ExpCusp is exponential growth followed by exponential decay.
func ExpCusp(width int, args ...float64) ([]float64, error) {
	half, err := ExpZeroCusp(width, args...)
	if err != nil {
		return nil, err
	}
	return addReversed(half), nil
}

// Pitchfork is the three-lobed template from the original shocklet family:
// a symmetric power cusp flanked by steeper zero cusps on both sides. Each
// lobe is zero-normed before the sum, so all three contribute on a common
// [-1, 1] scale regardless of the exponent. Shape argument: exponent b >= 0.
func Pitchfork(width int, args ...float64) ([]float64, error) {
	if err := needArgs("pitchfork", args, 1); err != nil {
		return nil, err
	}
	b := args[0]
	if b < 0 {
		return nil, fmt.Errorf("%w: pitchfork exponent must be >= 0, got %v", ErrConfiguration, b)
	}
	steep, err := PowerZeroCusp(width, 2*b)
	if err != nil {
		return nil, err
	}
	center, err := PowerCusp(width, b)
	if err != nil {
		return nil, err
	}
	steep = ZeroNorm(steep)
	center = ZeroNorm(center)
	res := make([]float64, width)
	for i := range res {
		res[i] = steep[width-1-i] + center[i] + steep[i]
	}
	return res, nil
}

func addReversed(half []float64) []float64 {
	n := len(half)
	res := make([]float64, n)
	for i := range res {
		res[i] = half[i] + half[n-1-i]
	}
	return res
}

var (
	kernelMu       sync.RWMutex
	kernelRegistry = map[string]KernelFunc{}
)

// RegisterKernel adds a kernel to the registry. Duplicate names are rejected
// so a misconfigured init cannot silently shadow a built-in shape.
func RegisterKernel(name string, fn KernelFunc) error {
	kernelMu.Lock()
	defer kernelMu.Unlock()
	if _, ok := kernelRegistry[name]; ok {
		return fmt.Errorf("%w: kernel %q already registered", ErrConfiguration, name)
	}
	kernelRegistry[name] = fn
	return nil
}

// KernelByName looks up a registered kernel. Unknown names are a usage error
// caught before any computation.
func KernelByName(name string) (KernelFunc, error) {
	kernelMu.RLock()
	defer kernelMu.RUnlock()
	fn, ok := kernelRegistry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kernel %q", ErrConfiguration, name)
	}
	return fn, nil
}

// KernelNames returns the registered kernel names in sorted order.
func KernelNames() []string {
	kernelMu.RLock()
	defer kernelMu.RUnlock()
	names := make([]string, 0, len(kernelRegistry))
	for name := range kernelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	builtins := map[string]KernelFunc{
		"haar":                Haar,
		"power_zero_cusp":     PowerZeroCusp,
		"power_cusp":          PowerCusp,
		"power_law_zero_cusp": PowerLawZeroCusp,
		"power_law_cusp":      PowerLawCusp,
		"exp_zero_cusp":       ExpZeroCusp,
		"exp_cusp":            ExpCusp,
		"pitchfork":           Pitchfork,
	}
	for name, fn := range builtins {
		if err := RegisterKernel(name, fn); err != nil {
			panic(err)
		}
	}
}
