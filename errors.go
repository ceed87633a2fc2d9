package shocklet

import "errors"

// Sentinel errors returned by the detection pipeline. All errors produced by
// this package wrap one of these, so callers can dispatch with errors.Is and
// decide whether to abort or to skip the offending row and continue.
var (
	// ErrConfiguration indicates an invalid parameter combination detected
	// before any computation (unknown kernel or weighting name, bad width
	// range, malformed shape argument).
	ErrConfiguration = errors.New("shocklet: invalid configuration")

	// ErrInsufficientLength indicates the smallest requested kernel width
	// exceeds the series length. Surfaced per row; sibling rows in a batch
	// are unaffected.
	ErrInsufficientLength = errors.New("shocklet: series shorter than smallest kernel width")

	// ErrZeroVariance indicates normalization was requested on a constant
	// series.
	ErrZeroVariance = errors.New("shocklet: zero variance series")

	// ErrNonPositiveValue indicates relative-change weighting was applied to
	// a segment containing a value <= 0, where log-returns are undefined.
	ErrNonPositiveValue = errors.New("shocklet: non-positive value in segment")
)
