package sync

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/internal/telemetry"
)

// TracerName is the name used for the sync engine tracer
const TracerName = "github.com/stacklok/thv-history-sync/sync"

// Option configures a Manager or an Orchestrator
type Option func(*settings)

type settings struct {
	tracer        trace.Tracer
	metrics       *telemetry.SyncMetrics
	maxConcurrent int
	now           func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTracer sets the tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// WithMetrics sets the sync metrics. Nothing is recorded when unset.
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithMaxConcurrentThreads bounds how many threads an Orchestrator syncs at
// once. Zero or less means no bound.
func WithMaxConcurrentThreads(n int) Option {
	return func(s *settings) {
		s.maxConcurrent = n
	}
}

// WithClock replaces time.Now as the pagination start and duration source
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
