package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// Status is the final state of a thread in a run
type Status string

// Thread statuses
const (
	StatusUpToDate     Status = "up-to-date"
	StatusSynchronized Status = "synchronized"
	StatusFailed       Status = "failed"
)

// Outcome describes what a run did to one thread
type Outcome struct {
	Thread store.ThreadID
	Status Status
	// Count is the number of messages fetched, also for failed runs
	Count    int64
	Local    int64
	Remote   *int64
	Reason   Reason
	Duration time.Duration
	Err      error
}

type outcomeJSON struct {
	Thread     store.ThreadID `json:"thread"`
	Status     Status         `json:"status"`
	Count      int64          `json:"count"`
	Local      int64          `json:"local"`
	Remote     *int64         `json:"remote,omitempty"`
	Reason     Reason         `json:"reason,omitempty"`
	DurationMs int64          `json:"durationMs"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  ErrorKind      `json:"errorKind,omitempty"`
}

// MarshalJSON renders the error as a string and the duration in milliseconds
func (o Outcome) MarshalJSON() ([]byte, error) {
	v := outcomeJSON{
		Thread:     o.Thread,
		Status:     o.Status,
		Count:      o.Count,
		Local:      o.Local,
		Remote:     o.Remote,
		Reason:     o.Reason,
		DurationMs: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
		v.ErrorKind = KindOf(o.Err)
	}
	return json.Marshal(v)
}

// Report aggregates the outcomes of one run
type Report struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  map[store.ThreadID]Outcome
}

// Summary counts outcomes by status
type Summary struct {
	Threads      int   `json:"threads"`
	UpToDate     int   `json:"upToDate"`
	Synchronized int   `json:"synchronized"`
	Failed       int   `json:"failed"`
	Fetched      int64 `json:"fetched"`
}

// Summary tallies the report
func (r *Report) Summary() Summary {
	s := Summary{Threads: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		s.Fetched += o.Count
		switch o.Status {
		case StatusUpToDate:
			s.UpToDate++
		case StatusSynchronized:
			s.Synchronized++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// MarshalJSON adds the summary and renders the duration in milliseconds
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID      uuid.UUID                  `json:"runId"`
		StartedAt  time.Time                  `json:"startedAt"`
		DurationMs int64                      `json:"durationMs"`
		Summary    Summary                    `json:"summary"`
		Outcomes   map[store.ThreadID]Outcome `json:"outcomes"`
	}{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		DurationMs: r.Duration.Milliseconds(),
		Summary:    r.Summary(),
		Outcomes:   r.Outcomes,
	})
}

// Orchestrator runs the Manager over many threads concurrently
type Orchestrator struct {
	manager Manager
	settings
}

// NewOrchestrator creates an Orchestrator
func NewOrchestrator(manager Manager, opts ...Option) *Orchestrator {
	return &Orchestrator{manager: manager, settings: newSettings(opts)}
}

// Run syncs every thread once and returns after all of them settled.
// Duplicate thread IDs are synced once. Run never fails; per-thread failures
// are in the report.
func (o *Orchestrator) Run(ctx context.Context, threads []store.ThreadID) *Report {
	report := &Report{
		RunID:     uuid.New(),
		StartedAt: o.now(),
		Outcomes:  make(map[store.ThreadID]Outcome, len(threads)),
	}

	unique := dedupe(threads)

	ctx, span := otel.StartSpan(ctx, o.tracer, "sync.run")
	span.SetAttributes(
		otel.AttrRunID.String(report.RunID.String()),
		otel.AttrThreadCount.Int(len(unique)),
	)
	defer span.End()

	slog.Info("Starting history sync run", "run_id", report.RunID, "threads", len(unique))

	outcomes := make([]Outcome, len(unique))
	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}
	for i, thread := range unique {
		g.Go(func() error {
			outcomes[i] = o.syncThread(ctx, thread)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		report.Outcomes[out.Thread] = out
	}
	report.Duration = o.now().Sub(report.StartedAt)
	o.metrics.RecordRunDuration(ctx, report.Duration, len(unique))

	sum := report.Summary()
	slog.Info("History sync run finished",
		"run_id", report.RunID,
		"duration", report.Duration,
		"up_to_date", sum.UpToDate,
		"synchronized", sum.Synchronized,
		"failed", sum.Failed,
		"fetched", sum.Fetched,
	)
	return report
}

// syncThread shields the run from a panicking thread
func (o *Orchestrator) syncThread(ctx context.Context, thread store.ThreadID) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := newError(KindInternal, thread, fmt.Errorf("panic: %v", r))
			slog.Error("History download failed", "thread", thread, "error", err, "stack", string(debug.Stack()))
			o.metrics.RecordFailure(ctx, string(thread), string(KindInternal))
			out = Outcome{Thread: thread, Status: StatusFailed, Err: err}
		}
	}()
	out = o.manager.SyncThread(ctx, thread)
	out.Thread = thread
	return out
}

func dedupe(threads []store.ThreadID) []store.ThreadID {
	seen := make(map[store.ThreadID]struct{}, len(threads))
	out := make([]store.ThreadID, 0, len(threads))
	for _, t := range threads {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
