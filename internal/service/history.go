package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/thv-history-sync/internal/capture"
	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/remote"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/sync"
	"github.com/stacklok/thv-history-sync/internal/sync/coordinator"
	"github.com/stacklok/thv-history-sync/internal/threads"
)

const (
	// TracerName is the name used for the service tracer
	TracerName = "github.com/stacklok/thv-history-sync/service"

	countConcurrency = 8
)

type historyService struct {
	store       store.Store
	lister      threads.Lister
	coordinator coordinator.Coordinator
	capture     *capture.Filter
	fields      config.FieldsConfig
	tracer      trace.Tracer
}

// Option configures the history service
type Option func(*historyService)

// WithCapture enables live capture. fields locates the key and the timestamp
// inside captured messages.
func WithCapture(f *capture.Filter, fields config.FieldsConfig) Option {
	return func(s *historyService) {
		s.capture = f
		s.fields = fields
	}
}

// WithTracer sets the tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *historyService) {
		s.tracer = tracer
	}
}

// New creates the HistoryService
func New(st store.Store, lister threads.Lister, coord coordinator.Coordinator, opts ...Option) HistoryService {
	s := &historyService{store: st, lister: lister, coordinator: coord}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *historyService) CheckReadiness(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store not reachable: %w", err)
	}
	return nil
}

func (s *historyService) ListThreads(ctx context.Context) (_ []ThreadSummary, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "historyService.ListThreads")
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	ids, err := s.lister.ListThreads(ctx)
	if err != nil {
		return nil, err
	}

	var partitions map[store.ThreadID]string
	if pl, ok := s.store.(store.PartitionLister); ok {
		if partitions, err = pl.Partitions(ctx); err != nil {
			return nil, fmt.Errorf("failed to list partitions: %w", err)
		}
	}

	out := make([]ThreadSummary, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			n, err := s.store.CountByThread(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to count messages of thread %s: %w", id, err)
			}
			out[i] = ThreadSummary{ID: id, Count: n, Partition: partitions[id]}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(out)))
	return out, nil
}

func (s *historyService) LastReport(_ context.Context) (*sync.Report, error) {
	if r := s.coordinator.LastReport(); r != nil {
		return r, nil
	}
	return nil, ErrNoReport
}

func (s *historyService) TriggerSync(ctx context.Context) error {
	err := s.coordinator.TriggerSync(ctx)
	switch {
	case errors.Is(err, coordinator.ErrSyncInProgress):
		return ErrSyncInProgress
	case errors.Is(err, coordinator.ErrStopped):
		return ErrShuttingDown
	}
	return err
}

func (s *historyService) Capture(ctx context.Context, thread store.ThreadID, raw []byte) (store.Message, error) {
	if s.capture == nil {
		return store.Message{}, ErrCaptureDisabled
	}

	_, span := otel.StartSpan(ctx, s.tracer, "historyService.Capture",
		trace.WithAttributes(otel.AttrThreadID.String(string(thread))))
	defer span.End()

	msg, err := remote.ParseMessage(thread, raw, s.fields)
	if err != nil {
		otel.RecordError(span, err)
		return store.Message{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return s.capture.Handle(ctx, msg), nil
}
