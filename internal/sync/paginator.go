package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/remote"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// Paginator downloads a thread's missing messages page by page, newest first
type Paginator struct {
	source        remote.Source
	store         store.Store
	maxPerRequest int
	settings
}

// NewPaginator creates a Paginator. maxPerRequest caps the page size.
func NewPaginator(source remote.Source, st store.Store, maxPerRequest int, opts ...Option) *Paginator {
	return &Paginator{
		source:        source,
		store:         st,
		maxPerRequest: maxPerRequest,
		settings:      newSettings(opts),
	}
}

// Run fetches up to target messages strictly older than start and upserts
// them. It returns the final cursor, also on failure, so callers can report
// how much was written. Pages already upserted stay written.
func (p *Paginator) Run(ctx context.Context, thread store.ThreadID, target int64, start time.Time) (Cursor, error) {
	cur := NewCursor(target, p.maxPerRequest, start)

	for !cur.Done() {
		next, err := p.page(ctx, thread, cur)
		if err != nil {
			return cur, err
		}
		cur = next
	}
	return cur, nil
}

func (p *Paginator) page(ctx context.Context, thread store.ThreadID, cur Cursor) (next Cursor, err error) {
	ctx, span := otel.StartSpan(ctx, p.tracer, "sync.page")
	span.SetAttributes(
		otel.AttrThreadID.String(string(thread)),
		otel.AttrPageSize.Int(cur.PageSize),
		otel.AttrPageIteration.Int(cur.Iteration),
	)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	msgs, err := p.source.History(ctx, thread, cur.PageSize, cur.UpperTimeBound)
	if err != nil {
		return cur, newError(KindRemoteFetch, thread, err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(msgs)))
	p.metrics.RecordMessagesFetched(ctx, string(thread), len(msgs))

	if len(msgs) > 0 {
		res, err := p.store.UpsertBatch(ctx, thread, msgs)
		p.metrics.RecordUpsert(ctx, string(thread), res.Inserted, res.Updated)
		if err != nil {
			return cur, newError(KindStoreWrite, thread, err)
		}
		next = cur.Advance(msgs)
		slog.Debug(fmt.Sprintf("Downloaded total %d/%d messages (%d new)", next.Fetched, next.Target, res.Inserted),
			"thread", thread,
			"updated", res.Updated,
		)
		return next, nil
	}

	slog.Debug("Remote returned an empty page", "thread", thread, "iteration", cur.Iteration)
	return cur.Advance(nil), nil
}
