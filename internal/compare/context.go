package compare

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/xerrors"
)

// Context names a directory holding one browser's or environment's
// screenshots.
type Context struct {
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

// Contexts is ordered; the first entry is the default reference.
type Contexts []Context

func (c Contexts) lookup(name string) (Context, bool) {
	for _, ctx := range c {
		if ctx.Name == name {
			return ctx, true
		}
	}
	return Context{}, false
}

type CrossContextComparator struct {
	pair        Pair
	concurrency int
	logger      *slog.Logger
}

func NewCrossContextComparator(pair Pair, concurrency int, logger *slog.Logger) *CrossContextComparator {
	if logger == nil {
		logger = slog.Default()
	}

	return &CrossContextComparator{
		pair:        pair,
		concurrency: concurrency,
		logger:      logger,
	}
}

// CompareAcrossContexts compares every screenshot of the reference context
// with the same-named screenshot of each other context. A screenshot missing
// from a context is reported as a not-found entry.
func (c *CrossContextComparator) CompareAcrossContexts(ctx context.Context, contexts Contexts, outputDir string, reference string) *ContextResult {
	if len(contexts) == 0 {
		return &ContextResult{Err: ErrNoContexts}
	}

	seen := make(map[string]struct{}, len(contexts))
	for _, sc := range contexts {
		if _, ok := seen[sc.Name]; ok {
			return &ContextResult{Err: xerrors.Errorf("duplicate context name: %s", sc.Name)}
		}
		seen[sc.Name] = struct{}{}
	}

	ref, ok := contexts.lookup(reference)
	if !ok {
		ref = contexts[0]
	}

	references, err := c.index(ctx, ref)
	if err != nil {
		return &ContextResult{Err: xerrors.Errorf("failed to walk reference context %s: %w", ref.Name, err)}
	}

	others := make([]Context, 0, len(contexts)-1)
	indexes := make([]map[string]string, 0, len(contexts)-1)
	for _, sc := range contexts {
		if sc.Name == ref.Name {
			continue
		}
		index, err := c.index(ctx, sc)
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("context directory does not exist", "context", sc.Name, "dir", sc.Dir)
			index, err = map[string]string{}, nil
		}
		if err != nil {
			return &ContextResult{Err: xerrors.Errorf("failed to walk context %s: %w", sc.Name, err)}
		}
		others = append(others, sc)
		indexes = append(indexes, index)
	}

	basenames := make([]string, 0, len(references))
	for name := range references {
		basenames = append(basenames, name)
	}
	sort.Strings(basenames)

	type slot struct {
		basename string
		context  string
	}

	result := &ContextResult{
		ReferenceContext: ref.Name,
		Comparisons:      make(map[string]map[string]*DiffResult, len(basenames)),
	}

	var (
		jobs  []job
		slots []slot
		used  = map[string]struct{}{}
	)
	for _, basename := range basenames {
		result.Comparisons[basename] = make(map[string]*DiffResult, len(others))
		for i, sc := range others {
			matched, ok := indexes[i][basename]
			if !ok {
				result.Comparisons[basename][sc.Name] = notFound(sc.Name)
				continue
			}
			jobs = append(jobs, job{
				baseline: references[basename],
				target:   matched,
				output:   filepath.Join(outputDir, contextOutputName(used, ref.Name, sc.Name, basename)),
			})
			slots = append(slots, slot{basename: basename, context: sc.Name})
		}
	}

	c.logger.Info("comparing contexts",
		"reference", ref.Name,
		"screenshots", len(basenames),
		"contexts", len(others),
		"comparisons", len(jobs),
	)

	for i, r := range run(ctx, c.pair, jobs, c.concurrency, c.logger) {
		result.Comparisons[slots[i].basename][slots[i].context] = r
	}

	return result
}

// index walks sc.Dir and maps each screenshot basename to the first path
// found for it in lexical walk order.
func (c *CrossContextComparator) index(ctx context.Context, sc Context) (map[string]string, error) {
	index := map[string]string{}

	err := filepath.WalkDir(sc.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isScreenshot(path) {
			return nil
		}

		name := d.Name()
		if first, ok := index[name]; ok {
			c.logger.Warn("duplicate screenshot basename, keeping first match",
				"context", sc.Name,
				"kept", first,
				"ignored", path,
			)
			return nil
		}
		index[name] = path
		return nil
	})
	if err != nil {
		return nil, err
	}

	return index, nil
}

func isScreenshot(path string) bool {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
