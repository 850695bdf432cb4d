package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultMetricsInterval is the OTLP push interval
const DefaultMetricsInterval = 60 * time.Second

// MeterOption configures NewMeterProvider
type MeterOption func(*meterSettings)

type meterSettings struct {
	endpoint   string
	insecure   bool
	interval   time.Duration
	registerer promclient.Registerer
	reader     sdkmetric.Reader
}

// WithMeterEndpoint sets the OTLP endpoint metrics are pushed to
func WithMeterEndpoint(endpoint string, insecure bool) MeterOption {
	return func(s *meterSettings) {
		s.endpoint = endpoint
		s.insecure = insecure
	}
}

// WithRegisterer sets the Prometheus registry the collector is registered
// with. The default registry is used otherwise.
func WithRegisterer(reg promclient.Registerer) MeterOption {
	return func(s *meterSettings) {
		s.registerer = reg
	}
}

// WithReader replaces the exporter-backed reader, mostly for tests
func WithReader(r sdkmetric.Reader) MeterOption {
	return func(s *meterSettings) {
		s.reader = r
	}
}

func noopMeterProvider() metric.MeterProvider {
	return noop.NewMeterProvider()
}

// NewMeterProvider returns an SDK meter provider registered as the global
// provider, or a no-op provider when metrics are disabled.
func NewMeterProvider(
	ctx context.Context,
	res *resource.Resource,
	cfg *MetricsConfig,
	opts ...MeterOption,
) (metric.MeterProvider, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noopMeterProvider(), nil
	}

	s := meterSettings{endpoint: DefaultEndpoint, interval: DefaultMetricsInterval}
	for _, opt := range opts {
		opt(&s)
	}

	if s.reader == nil {
		reader, err := newReader(ctx, cfg.GetExporter(), &s)
		if err != nil {
			return nil, err
		}
		s.reader = reader
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(s.reader),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "exporter", cfg.GetExporter())
	return mp, nil
}

func newReader(ctx context.Context, exporter MetricsExporter, s *meterSettings) (sdkmetric.Reader, error) {
	switch exporter {
	case MetricsExporterPrometheus:
		var promOpts []prometheus.Option
		if s.registerer != nil {
			promOpts = append(promOpts, prometheus.WithRegisterer(s.registerer))
		}
		reader, err := prometheus.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		return reader, nil

	case MetricsExporterOTLP:
		exportOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(s.endpoint)}
		if s.insecure {
			exportOpts = append(exportOpts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, exportOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(s.interval)), nil

	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", exporter)
	}
}
