// Package telemetry wires OpenTelemetry tracing and metrics for the history
// sync service. Traces go to an OTLP collector; metrics are either pushed over
// OTLP or exposed for Prometheus to scrape.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName is reported when no service name is configured
	DefaultServiceName = "thv-history-sync"

	// DefaultEndpoint is the OTLP collector endpoint (host:port, HTTP)
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio used when none is set
	DefaultSampling = 0.05
)

// MetricsExporter selects how metrics leave the process
type MetricsExporter string

const (
	// MetricsExporterOTLP pushes metrics to the OTLP endpoint
	MetricsExporterOTLP MetricsExporter = "otlp"
	// MetricsExporterPrometheus registers a Prometheus collector served on /metrics
	MetricsExporterPrometheus MetricsExporter = "prometheus"
)

// Config is the telemetry section of the service configuration
type Config struct {
	// Enabled switches all telemetry on or off
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector "host:port"
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces kept, between 0.0 and 1.0
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp" (default) or "prometheus"
	Exporter MetricsExporter `yaml:"exporter,omitempty"`
}

// GetServiceName returns the configured service name or DefaultServiceName
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the configured version or "unknown"
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the configured endpoint or DefaultEndpoint
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. Zero means unset and yields DefaultSampling.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetExporter returns the metrics exporter, defaulting to OTLP
func (c *MetricsConfig) GetExporter() MetricsExporter {
	if c == nil || c.Exporter == "" {
		return MetricsExporterOTLP
	}
	return c.Exporter
}

// PrometheusEnabled reports whether metrics are exposed for scraping
func (c *Config) PrometheusEnabled() bool {
	return c != nil && c.Enabled && c.Metrics != nil && c.Metrics.Enabled &&
		c.Metrics.GetExporter() == MetricsExporterPrometheus
}

// Validate checks the configuration. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate checks the exporter name
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	switch c.GetExporter() {
	case MetricsExporterOTLP, MetricsExporterPrometheus:
		return nil
	default:
		return fmt.Errorf("unsupported exporter %q (want %q or %q)",
			c.Exporter, MetricsExporterOTLP, MetricsExporterPrometheus)
	}
}
