// Package tracing wraps the OpenTelemetry tracer with the span shape
// the Orchestrator wants for its per-stage StageMetric timings: one
// span per pipeline stage, tagged with the pipeline variant and the
// item count the stage produced, spanning exactly the interval the
// metric already measured.
package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/sajor2000/chatcore/internal/orchestrator"

var tracer trace.Tracer = otel.Tracer(instrumentationName)

// Configure installs an always-sampling TracerProvider as the global
// provider, so stage spans are recorded even when no exporter has been
// wired yet (e.g. local development). Returns the provider's Shutdown
// for the caller to defer. A process that never calls Configure keeps
// OpenTelemetry's default no-op tracer, so StartStage/End remain safe
// to call unconditionally.
func Configure() func(context.Context) error {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	otel.SetTracerProvider(provider)
	tracer = provider.Tracer(instrumentationName)
	return provider.Shutdown
}

// StartStage opens a span for one pipeline stage, backdated to start so
// the span's duration matches the StageMetric the caller already timed
// rather than the (later) instant tracing was added to the call.
func StartStage(ctx context.Context, variant, stage string, start time.Time) (context.Context, trace.Span) {
	return tracer.Start(ctx, stage,
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("pipeline.variant", variant),
			attribute.String("pipeline.stage", stage),
		),
	)
}

// End closes span at the given end time, recording err if the stage
// failed and count as the number of items the stage produced.
func End(span trace.Span, err error, count int, end time.Time) {
	span.SetAttributes(attribute.Int("pipeline.count", count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))
}
