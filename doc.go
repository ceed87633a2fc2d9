// Package shocklet detects abrupt regime changes ("shocks" or "cusps") in
// univariate time series by correlating the series, at many time scales,
// against a family of parametric template shapes.
//
// The pipeline has five stages. The cusplet transform cross-correlates a
// series against a kernel template at a range of widths, producing a 2-D
// response surface. The classifier reduces the surface to a per-index
// indicator signal and a boolean gate using a two-stage threshold: an
// amplitude multiplier b over the indicator's variability, then a density
// requirement geval over a local neighborhood. The window builder merges
// gated indices into contiguous anomaly windows, absorbing gaps up to a
// configurable look-back. Weighting functions score each window by the
// magnitude of change of the original series inside it and rescale the
// indicator accordingly. Optional normalization rescales a raw series to
// zero mean and unit variance first.
//
// # Basic Usage
//
//	cfg := shocklet.DefaultConfig()
//	cfg.Kernel = shocklet.KernelConfig{Name: "haar"}
//	det, err := shocklet.NewDetector(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := det.Detect(series)
//	for _, w := range res.Windows {
//	    fmt.Printf("shock at [%d, %d]\n", w.Start, w.End)
//	}
//
// The detector is stateless and safe for concurrent use; BatchRunner fans
// independent rows out across a worker pool, skipping rows that fail (for
// example a series shorter than the smallest kernel width) without aborting
// the batch.
//
// # Integrations
//
//   - Compressed (snappy) result archives with optional AES-256-GCM
//     encryption, locally or in S3-compatible object storage
//   - SQLite-backed window store for querying detections with standard tools
//   - HTTP API with a Prometheus remote-write receiver
//   - WebSocket streaming of detection events
package shocklet
