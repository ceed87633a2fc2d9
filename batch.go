package shocklet

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
)

// RowResult pairs one input row with its detection outcome. Err is non-nil
// when the row was skipped (e.g. ErrInsufficientLength on a short row);
// sibling rows are unaffected.
type RowResult struct {
	Row    int
	Result *Result
	Err    error
}

// BatchConfig configures the batch runner.
type BatchConfig struct {
	// Workers is the number of concurrent workers. Default: GOMAXPROCS.
	Workers int

	// Logger receives per-row failure logs. Default: slog.Default().
	Logger *slog.Logger
}

// BatchRunner fans independent rows out across a bounded worker pool. Rows
// are order-insensitive and share no state, so no coordination beyond the
// dispatch channel is needed; results are returned indexed by row.
type BatchRunner struct {
	detector *Detector
	workers  int
	log      *slog.Logger
}

// NewBatchRunner creates a batch runner over a shared detector.
func NewBatchRunner(detector *Detector, cfg BatchConfig) *BatchRunner {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &BatchRunner{detector: detector, workers: workers, log: log}
}

// Run processes every row, skipping and logging rows that fail. The returned
// slice has one entry per input row, in input order. Cancellation stops
// dispatch; rows already in flight finish.
func (b *BatchRunner) Run(ctx context.Context, rows [][]float64) []RowResult {
	results := make([]RowResult, len(rows))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := b.detector.Detect(rows[i])
				results[i] = RowResult{Row: i, Result: res, Err: err}
				if err != nil {
					b.log.Warn("row skipped", "row", i, "len", len(rows[i]), "err", err)
				}
			}
		}()
	}

dispatch:
	for i := range rows {
		select {
		case <-ctx.Done():
			for j := i; j < len(rows); j++ {
				results[j] = RowResult{Row: j, Err: ctx.Err()}
			}
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
