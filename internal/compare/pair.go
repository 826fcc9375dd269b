package compare

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"time"
	"visual-regression/internal/composite"
	"visual-regression/internal/config"
	diffimage "visual-regression/internal/diff/image"
	"visual-regression/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// Pair compares two screenshots on disk and writes a composite to
// outputPath. Implementations report every failure inside the result.
type Pair interface {
	Compare(ctx context.Context, pathA string, pathB string, outputPath string) *DiffResult
}

type PairDiffer struct {
	differ     diffimage.Differ
	compositor *composite.Compositor
	storage    storage.Storage
	logger     *slog.Logger
}

func NewPairDiffer(c config.Config, s storage.Storage, logger *slog.Logger) *PairDiffer {
	if logger == nil {
		logger = slog.Default()
	}

	return &PairDiffer{
		differ:     diffimage.NewRegionDiff(c.Threshold, c.NoiseFloor, c.Resample.Scaler()),
		compositor: composite.NewCompositor(composite.LoadFace(c.Font, c.LabelFontPath, c.LabelSize, logger)),
		storage:    s,
		logger:     logger,
	}
}

func (p *PairDiffer) Compare(ctx context.Context, pathA string, pathB string, outputPath string) (result *DiffResult) {
	ctx, span := tracer.Start(ctx, "PairDiffer.Compare", trace.WithAttributes(
		attribute.String("baseline", pathA),
		attribute.String("target", pathB),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, span, ErrorKindCanceled, err, pathA, pathB)
	}

	baseline, err := loadScreenshot(pathA)
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("failed to load baseline image: %w", err), pathA, pathB)
	}

	target, err := loadScreenshot(pathB)
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("failed to load target image: %w", err), pathA, pathB)
	}

	return p.compareImages(ctx, span, baseline, target, outputPath, pathA, pathB)
}

// CompareBytes decodes two encoded screenshots held in memory and compares
// them like Compare.
func (p *PairDiffer) CompareBytes(ctx context.Context, baseline []byte, target []byte, outputPath string) *DiffResult {
	ctx, span := tracer.Start(ctx, "PairDiffer.CompareBytes")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, span, ErrorKindCanceled, err, "", "")
	}

	baselineImage, err := decodeScreenshot(bytes.NewReader(baseline), "baseline")
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("failed to load baseline image: %w", err), "", "")
	}

	targetImage, err := decodeScreenshot(bytes.NewReader(target), "target")
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("failed to load target image: %w", err), "", "")
	}

	return p.compareImages(ctx, span, baselineImage, targetImage, outputPath, "", "")
}

// CompareImages runs the comparison on already decoded images and stores
// the composite under outputPath.
func (p *PairDiffer) CompareImages(ctx context.Context, baseline image.Image, target image.Image, outputPath string) *DiffResult {
	ctx, span := tracer.Start(ctx, "PairDiffer.CompareImages")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return p.fail(ctx, span, ErrorKindCanceled, err, "", "")
	}

	return p.compareImages(ctx, span, baseline, target, outputPath, "", "")
}

func (p *PairDiffer) compareImages(ctx context.Context, span trace.Span, baseline image.Image, target image.Image, outputPath string, pathA string, pathB string) (result *DiffResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("panic while comparing: %v", r), pathA, pathB)
		}
	}()

	diff := p.differ.Calculate(baseline, target)

	triptych := p.compositor.Compose(
		composite.Panel{Image: diff.Baseline, Label: "Image 1"},
		composite.Panel{Image: diff.Target, Label: "Image 2"},
		composite.Panel{Image: diff.Highlight, Label: "Differences"},
	)

	data, err := composite.Encode(triptych, outputPath)
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, err, pathA, pathB)
	}

	compositePath, err := p.storage.Put(ctx, outputPath, data)
	if err != nil {
		return p.fail(ctx, span, ErrorKindInput, xerrors.Errorf("failed to save composite: %w", err), pathA, pathB)
	}

	hasDifferences := len(diff.Regions) > 0
	result = &DiffResult{
		DiffPercentage:  diff.DiffAmount * 100,
		DiffPixelCount:  diff.DiffPixels,
		DiffRegionCount: len(diff.Regions),
		CompositePath:   compositePath,
		HasDifferences:  &hasDifferences,
		Regions:         newRegions(diff.Regions),
	}

	span.SetAttributes(
		attribute.Int("diff.regions", result.DiffRegionCount),
		attribute.Float64("diff.percentage", result.DiffPercentage),
	)
	recordComparison(ctx, result, time.Since(start))

	p.logger.Debug("compared screenshots",
		"baseline", pathA,
		"target", pathB,
		"composite", compositePath,
		"regions", result.DiffRegionCount,
	)

	return result
}

func (p *PairDiffer) fail(ctx context.Context, span trace.Span, kind ErrorKind, err error, pathA string, pathB string) *DiffResult {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	p.logger.Error("failed to compare screenshots",
		"baseline", pathA,
		"target", pathB,
		"kind", string(kind),
		"error", err,
	)

	result := failed(kind, err)
	recordComparison(ctx, result, 0)
	return result
}

func loadScreenshot(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return decodeScreenshot(file, path)
}

func decodeScreenshot(r io.Reader, name string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", name, err)
	}

	return img, nil
}
