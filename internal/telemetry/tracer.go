package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerOption configures NewTracerProvider
type TracerOption func(*tracerSettings)

type tracerSettings struct {
	endpoint string
	insecure bool
	exporter sdktrace.SpanExporter
}

// WithTracerEndpoint sets the OTLP endpoint spans are sent to
func WithTracerEndpoint(endpoint string, insecure bool) TracerOption {
	return func(s *tracerSettings) {
		s.endpoint = endpoint
		s.insecure = insecure
	}
}

// WithSpanExporter replaces the OTLP exporter, mostly for tests
func WithSpanExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(s *tracerSettings) {
		s.exporter = exp
	}
}

func noopTracerProvider() trace.TracerProvider {
	return noop.NewTracerProvider()
}

// NewTracerProvider returns an SDK tracer provider registered as the global
// provider, or a no-op provider when tracing is disabled.
func NewTracerProvider(
	ctx context.Context,
	res *resource.Resource,
	cfg *TracingConfig,
	opts ...TracerOption,
) (trace.TracerProvider, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return noopTracerProvider(), nil
	}

	s := tracerSettings{endpoint: DefaultEndpoint}
	for _, opt := range opts {
		opt(&s)
	}

	if s.exporter == nil {
		exportOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(s.endpoint)}
		if s.insecure {
			exportOpts = append(exportOpts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		s.exporter = exp
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(s.exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.GetSampling()))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if s.insecure {
		slog.Warn("Tracing uses an unencrypted connection to the collector")
	}
	slog.Info("Tracing initialized", "endpoint", s.endpoint, "sampling_ratio", cfg.GetSampling())

	return tp, nil
}
