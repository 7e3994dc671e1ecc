package telemetry

import (
	"context"

	"github.com/jingkaihe/skillet/pkg/diagnostics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "skillet"

// Tracer returns the skillet tracer from the global provider
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(tracerName)
}

// WithSpan runs f inside a span named name. A returned error is recorded on
// the span and marks it failed.
func WithSpan(ctx context.Context, name string, f func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	err := f(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return err
}

// RecordDiagnostics adds per-severity counts and the codes seen to the
// current span.
func RecordDiagnostics(ctx context.Context, diags []diagnostics.Diagnostic) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	counts := diagnostics.Count(diags)
	seen := make(map[string]bool)
	var codeList []string
	for _, d := range diags {
		if !seen[d.Code] {
			seen[d.Code] = true
			codeList = append(codeList, d.Code)
		}
	}

	span.SetAttributes(
		attribute.Int("skillet.diagnostics.errors", counts.Errors),
		attribute.Int("skillet.diagnostics.warnings", counts.Warnings),
		attribute.Int("skillet.diagnostics.infos", counts.Infos),
		attribute.StringSlice("skillet.diagnostics.codes", codeList),
	)
}
