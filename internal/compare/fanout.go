package compare

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type job struct {
	baseline string
	target   string
	output   string
}

// run compares every job with at most limit comparisons in flight. The
// returned slice is parallel to jobs and never contains nil.
func run(ctx context.Context, pair Pair, jobs []job, limit int, logger *slog.Logger) []*DiffResult {
	results := make([]*DiffResult, len(jobs))

	eg := errgroup.Group{}
	if limit > 0 {
		eg.SetLimit(limit)
	}

	for i, j := range jobs {
		eg.Go(func() error {
			results[i] = compareOne(ctx, pair, j, logger)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func compareOne(ctx context.Context, pair Pair, j job, logger *slog.Logger) (result *DiffResult) {
	defer func() {
		if r := recover(); r != nil {
			err := xerrors.Errorf("panic while comparing %s: %v", j.target, r)
			logger.Error("failed to compare screenshots", "baseline", j.baseline, "target", j.target, "error", err)
			result = failed(ErrorKindInput, err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(ErrorKindCanceled, err)
	}

	result = pair.Compare(ctx, j.baseline, j.target, j.output)
	if result == nil {
		result = failed(ErrorKindInput, xerrors.Errorf("no result comparing %s", j.target))
	}
	return result
}
