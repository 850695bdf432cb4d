package sync

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/remote"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// Manager synchronizes a single thread
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/thv-history-sync/internal/sync Manager
type Manager interface {
	// SyncThread brings the thread's local history up to the remote count.
	// Failures are reported in the Outcome, never returned or panicked.
	SyncThread(ctx context.Context, thread store.ThreadID) Outcome
}

type defaultManager struct {
	source    remote.Source
	store     store.Store
	paginator *Paginator
	settings
}

// NewManager creates the default Manager. maxPerRequest caps the page size.
func NewManager(source remote.Source, st store.Store, maxPerRequest int, opts ...Option) Manager {
	return &defaultManager{
		source:    source,
		store:     st,
		paginator: NewPaginator(source, st, maxPerRequest, opts...),
		settings:  newSettings(opts),
	}
}

func (m *defaultManager) SyncThread(ctx context.Context, thread store.ThreadID) (out Outcome) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "sync.thread")
	span.SetAttributes(otel.AttrThreadID.String(string(thread)))

	start := m.now()
	out = Outcome{Thread: thread}
	defer func() {
		out.Duration = m.now().Sub(start)
		if out.Err != nil {
			out.Status = StatusFailed
			slog.Error("History download failed", "thread", thread, "error", out.Err)
			m.metrics.RecordFailure(ctx, string(thread), string(KindOf(out.Err)))
		}
		m.metrics.RecordThreadSync(ctx, string(thread), string(out.Status), out.Duration)

		span.SetAttributes(otel.AttrStatus.String(string(out.Status)), otel.AttrFetched.Int64(out.Count))
		otel.RecordError(span, out.Err)
		span.End()
	}()

	if err := m.store.EnsurePartition(ctx, thread); err != nil {
		out.Err = newError(KindPartitionSetup, thread, err)
		return out
	}

	local, remoteCount, err := m.counts(ctx, thread)
	if err != nil {
		out.Err = err
		return out
	}
	out.Local, out.Remote = local, remoteCount

	plan, err := Reconcile(local, remoteCount)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			se.Thread = thread
		}
		out.Err = err
		return out
	}
	out.Reason = plan.Reason

	switch plan.Reason {
	case ReasonUpToDate:
		slog.Info("Thread history is up-to-date", "thread", thread, "count", local)
		out.Status = StatusUpToDate
		return out
	case ReasonDrift:
		slog.Warn("Local history has more messages than the remote, downloading the full history",
			"thread", thread, "local", local, "remote", plan.Remote)
	case ReasonBehind:
		slog.Info("Thread history is behind", "thread", thread, "missing", plan.Target)
	}
	span.SetAttributes(otel.AttrTarget.Int64(plan.Target))

	// An empty remote leaves nothing to download
	if plan.Target == 0 {
		slog.Info("Remote thread is empty, nothing to download", "thread", thread, "local", local)
		out.Status = StatusUpToDate
		return out
	}

	if err := m.store.EnsureUniqueIndex(ctx, thread); err != nil {
		out.Err = newError(KindIndexSetup, thread, err)
		return out
	}

	cur, err := m.paginator.Run(ctx, thread, plan.Target, m.now())
	out.Count = cur.Fetched
	if err != nil {
		out.Err = err
		return out
	}

	out.Status = StatusSynchronized
	return out
}

// counts reads the local and remote counts concurrently
func (m *defaultManager) counts(ctx context.Context, thread store.ThreadID) (int64, *int64, error) {
	var (
		local       int64
		remoteCount *int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := m.store.CountByThread(gctx, thread)
		if err != nil {
			return newError(KindStoreRead, thread, err)
		}
		local = n
		return nil
	})
	g.Go(func() error {
		n, err := m.source.MessageCount(gctx, thread)
		if err != nil {
			return newError(KindRemoteFetch, thread, err)
		}
		remoteCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	remoteLog := any("unavailable")
	if remoteCount != nil {
		remoteLog = *remoteCount
	}
	slog.Info("Thread message counts", "thread", thread, "local", local, "remote", remoteLog)
	return local, remoteCount, nil
}
