package compare

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "visual-regression/internal/compare"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	comparisonsTotal, _               = meter.Int64Counter("comparisons_total")
	comparisonDurationMilliSeconds, _ = meter.Int64Histogram("comparison_duration_milli_seconds")
)

func recordComparison(ctx context.Context, result *DiffResult, duration time.Duration) {
	outcome := "same"
	switch {
	case result.Err != nil:
		outcome = string(result.Kind)
	case result.Differs():
		outcome = "different"
	}

	comparisonsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Key("outcome").String(outcome)))
	if result.Err == nil {
		comparisonDurationMilliSeconds.Record(ctx, duration.Milliseconds())
	}
}
