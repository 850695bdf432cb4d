// Package capture writes live chat messages to the local store as they arrive.
//
// Capture is best effort: inserts run in the background, failures are logged
// and dropped, and the message always continues down the pipeline unchanged.
// Gaps left by dropped inserts are filled by the next history sync.
package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/telemetry"
)

// TracerName is the name used for the capture tracer
const TracerName = "github.com/stacklok/thv-history-sync/capture"

// DefaultTimeout bounds a single background insert
const DefaultTimeout = 10 * time.Second

// Filter mirrors each message it sees into the store
type Filter struct {
	inserter store.Inserter
	timeout  time.Duration
	metrics  *telemetry.CaptureMetrics
	tracer   trace.Tracer

	wg sync.WaitGroup
}

// Option configures a Filter
type Option func(*Filter)

// WithTimeout bounds each insert
func WithTimeout(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMetrics sets the capture metrics
func WithMetrics(m *telemetry.CaptureMetrics) Option {
	return func(f *Filter) {
		f.metrics = m
	}
}

// WithTracer sets the tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Filter) {
		f.tracer = tracer
	}
}

// NewFilter creates a Filter writing through inserter
func NewFilter(inserter store.Inserter, opts ...Option) *Filter {
	f := &Filter{inserter: inserter, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handle schedules the insert of msg and returns msg immediately. The insert
// is not cancelled when ctx is.
func (f *Filter) Handle(ctx context.Context, msg store.Message) store.Message {
	insertCtx := context.WithoutCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.insert(insertCtx, msg)
	}()
	return msg
}

func (f *Filter) insert(ctx context.Context, msg store.Message) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ctx, span := otel.StartSpan(ctx, f.tracer, "capture.insert")
	span.SetAttributes(otel.AttrThreadID.String(string(msg.ThreadID)))
	defer span.End()

	err := f.inserter.Insert(ctx, msg)
	f.metrics.RecordInsert(ctx, string(msg.ThreadID), err == nil)
	if err != nil {
		otel.RecordError(span, err)
		slog.Warn("Failed to capture message",
			"thread", msg.ThreadID,
			"key", msg.Key,
			"error", err,
		)
	}
}

// Wait blocks until every scheduled insert has finished
func (f *Filter) Wait() {
	f.wg.Wait()
}
