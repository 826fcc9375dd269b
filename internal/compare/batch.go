package compare

import (
	"context"
	"log/slog"
	"path/filepath"
)

// BatchComparator compares every screenshot of a batch against one
// baseline.
type BatchComparator struct {
	pair        Pair
	concurrency int
	logger      *slog.Logger
}

func NewBatchComparator(pair Pair, concurrency int, logger *slog.Logger) *BatchComparator {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchComparator{
		pair:        pair,
		concurrency: concurrency,
		logger:      logger,
	}
}

// CompareBatch compares screenshots against baseline, or against the first
// screenshot when baseline is empty. Entries equal to the baseline are
// skipped. Results are keyed by basename.
func (b *BatchComparator) CompareBatch(ctx context.Context, screenshots []string, outputDir string, baseline string) *BatchResult {
	if len(screenshots) == 0 {
		return &BatchResult{Err: ErrNoScreenshots}
	}

	if baseline == "" {
		baseline = screenshots[0]
	}

	targets := make([]string, 0, len(screenshots))
	for _, s := range screenshots {
		if s == baseline {
			continue
		}
		targets = append(targets, s)
	}

	names := batchOutputNames(baseline, targets)
	keys := resultKeys(targets)

	jobs := make([]job, len(targets))
	for i, target := range targets {
		jobs[i] = job{
			baseline: baseline,
			target:   target,
			output:   filepath.Join(outputDir, names[i]),
		}
	}

	b.logger.Info("comparing batch", "baseline", baseline, "screenshots", len(targets))

	results := run(ctx, b.pair, jobs, b.concurrency, b.logger)

	batch := &BatchResult{
		Results: make(map[string]*DiffResult, len(results)),
	}
	for i, r := range results {
		batch.Results[keys[i]] = r
	}

	return batch
}
