// Package telemetry provides optional OpenTelemetry tracing for skillet runs.
// Tracing is off unless enabled in configuration; when off every helper
// operates on the no-op global provider.
package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Config controls tracing
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplerType is one of always, never or ratio
	SamplerType  string
	SamplerRatio float64
}

// A skillet run lasts seconds, so spans are flushed often and in small
// batches to get them out before the process exits.
const (
	exportBatchSize    = 128
	exportBatchTimeout = 500 * time.Millisecond
)

// InitTracer installs a global tracer provider exporting over OTLP/HTTP and
// returns the function that flushes and stops it. When tracing is disabled it
// installs nothing and the returned function is a no-op.
func InitTracer(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Endpoint and headers come from OTEL_EXPORTER_OTLP_* variables.
	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create trace exporter")
	}

	provider := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(getSampler(cfg)),
		trace.WithBatcher(exporter,
			trace.WithMaxExportBatchSize(exportBatchSize),
			trace.WithBatchTimeout(exportBatchTimeout),
		),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var result *multierror.Error
		// The provider flushes the batcher into the exporter before
		// stopping it, so the exporter is shut down last.
		if err := provider.Shutdown(ctx); err != nil {
			result = multierror.Append(result, pkgerrors.Wrap(err, "failed to shut down tracer provider"))
		}
		if err := exporter.Shutdown(ctx); err != nil {
			result = multierror.Append(result, pkgerrors.Wrap(err, "failed to shut down trace exporter"))
		}
		return result.ErrorOrNil()
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = tracerName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create resource")
	}
	return res, nil
}

// getSampler maps the sampler settings onto an SDK sampler. Ratios outside
// [0, 1] sample everything; unknown types do too.
func getSampler(cfg Config) trace.Sampler {
	switch strings.ToLower(cfg.SamplerType) {
	case "never":
		return trace.NeverSample()
	case "ratio":
		ratio := cfg.SamplerRatio
		if ratio < 0 || ratio > 1 {
			ratio = 1
		}
		return trace.ParentBased(trace.TraceIDRatioBased(ratio))
	default:
		return trace.AlwaysSample()
	}
}
