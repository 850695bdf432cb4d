package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the meter used by the sync engine
	SyncMetricsMeterName = "github.com/stacklok/thv-history-sync/sync"

	// CaptureMetricsMeterName is the meter used by the live capture filter
	CaptureMetricsMeterName = "github.com/stacklok/thv-history-sync/capture"
)

// SyncMetrics holds the sync engine instruments. A nil *SyncMetrics records nothing.
type SyncMetrics struct {
	threadDuration  metric.Float64Histogram
	runDuration     metric.Float64Histogram
	messagesFetched metric.Int64Counter
	rowsWritten     metric.Int64Counter
	failures        metric.Int64Counter
}

// NewSyncMetrics creates the sync instruments. A nil provider yields nil metrics.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	m := &SyncMetrics{}
	var err error

	m.threadDuration, err = meter.Float64Histogram(
		"thv_history_thread_sync_duration_seconds",
		metric.WithDescription("Duration of a single thread sync in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 900),
	)
	collect(err)

	m.runDuration, err = meter.Float64Histogram(
		"thv_history_sync_run_duration_seconds",
		metric.WithDescription("Duration of a full sync run across all threads in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 900, 1800, 3600),
	)
	collect(err)

	m.messagesFetched, err = meter.Int64Counter(
		"thv_history_messages_fetched_total",
		metric.WithDescription("Messages downloaded from the remote history service"),
		metric.WithUnit("{message}"),
	)
	collect(err)

	m.rowsWritten, err = meter.Int64Counter(
		"thv_history_rows_written_total",
		metric.WithDescription("Rows written to the local store by upsert, split by operation"),
		metric.WithUnit("{row}"),
	)
	collect(err)

	m.failures, err = meter.Int64Counter(
		"thv_history_sync_failures_total",
		metric.WithDescription("Thread sync failures by error kind"),
		metric.WithUnit("{failure}"),
	)
	collect(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// RecordThreadSync records how long a thread sync took and how it ended
func (m *SyncMetrics) RecordThreadSync(ctx context.Context, thread, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.threadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("thread", thread),
		attribute.String("status", status),
	))
}

// RecordRunDuration records a complete sync run
func (m *SyncMetrics) RecordRunDuration(ctx context.Context, duration time.Duration, threads int) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Int("threads", threads),
	))
}

// RecordMessagesFetched adds n downloaded messages for the thread
func (m *SyncMetrics) RecordMessagesFetched(ctx context.Context, thread string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.messagesFetched.Add(ctx, int64(n), metric.WithAttributes(attribute.String("thread", thread)))
}

// RecordUpsert adds the inserted and updated row counts of one batch
func (m *SyncMetrics) RecordUpsert(ctx context.Context, thread string, inserted, updated int) {
	if m == nil {
		return
	}
	if inserted > 0 {
		m.rowsWritten.Add(ctx, int64(inserted), metric.WithAttributes(
			attribute.String("thread", thread), attribute.String("op", "insert")))
	}
	if updated > 0 {
		m.rowsWritten.Add(ctx, int64(updated), metric.WithAttributes(
			attribute.String("thread", thread), attribute.String("op", "update")))
	}
}

// RecordFailure counts a failed thread sync
func (m *SyncMetrics) RecordFailure(ctx context.Context, thread, kind string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("thread", thread),
		attribute.String("kind", kind),
	))
}

// CaptureMetrics counts live message inserts. A nil *CaptureMetrics records nothing.
type CaptureMetrics struct {
	inserts metric.Int64Counter
}

// NewCaptureMetrics creates the capture instruments. A nil provider yields nil metrics.
func NewCaptureMetrics(provider metric.MeterProvider) (*CaptureMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	inserts, err := provider.Meter(CaptureMetricsMeterName).Int64Counter(
		"thv_history_capture_inserts_total",
		metric.WithDescription("Live message inserts by result"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}
	return &CaptureMetrics{inserts: inserts}, nil
}

// RecordInsert counts one capture attempt
func (m *CaptureMetrics) RecordInsert(ctx context.Context, thread string, success bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !success {
		result = "error"
	}
	m.inserts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("thread", thread),
		attribute.String("result", result),
	))
}
