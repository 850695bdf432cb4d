package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	empty := &Config{}
	assert.Equal(t, DefaultServiceName, empty.GetServiceName())
	assert.Equal(t, "unknown", empty.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, empty.GetEndpoint())

	set := &Config{ServiceName: "svc", ServiceVersion: "1.2.3", Endpoint: "otel:4318"}
	assert.Equal(t, "svc", set.GetServiceName())
	assert.Equal(t, "1.2.3", set.GetServiceVersion())
	assert.Equal(t, "otel:4318", set.GetEndpoint())

	assert.InDelta(t, DefaultSampling, (&TracingConfig{}).GetSampling(), 1e-9)
	assert.InDelta(t, 0.5, (&TracingConfig{Sampling: 0.5}).GetSampling(), 1e-9)

	var nilMetrics *MetricsConfig
	assert.Equal(t, MetricsExporterOTLP, nilMetrics.GetExporter())
	assert.Equal(t, MetricsExporterPrometheus, (&MetricsConfig{Exporter: "prometheus"}).GetExporter())
}

func TestConfig_PrometheusEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *Config
		want bool
	}{
		{name: "nil", cfg: nil, want: false},
		{name: "telemetry disabled", cfg: &Config{Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus}}},
		{name: "metrics disabled", cfg: &Config{Enabled: true, Metrics: &MetricsConfig{Exporter: MetricsExporterPrometheus}}},
		{name: "otlp exporter", cfg: &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true}}},
		{
			name: "prometheus exporter",
			cfg:  &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.PrometheusEnabled())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil config", cfg: nil},
		{name: "disabled config skips checks", cfg: &Config{Tracing: &TracingConfig{Enabled: true, Sampling: 7}}},
		{name: "valid", cfg: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: 1},
			Metrics: &MetricsConfig{Enabled: true, Exporter: MetricsExporterPrometheus},
		}},
		{
			name:    "sampling above one",
			cfg:     &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: 1.5}},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name:    "negative sampling",
			cfg:     &Config{Enabled: true, Tracing: &TracingConfig{Enabled: true, Sampling: -0.1}},
			wantErr: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name:    "unknown exporter",
			cfg:     &Config{Enabled: true, Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: `metrics: unsupported exporter "statsd"`,
		},
		{
			name: "unknown exporter ignored when metrics disabled",
			cfg:  &Config{Enabled: true, Metrics: &MetricsConfig{Exporter: "statsd"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
