package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stacklok/thv-history-sync/internal/store"
	pkgsync "github.com/stacklok/thv-history-sync/internal/sync"
	"github.com/stacklok/thv-history-sync/internal/threads"
)

// DefaultInterval is the time between scheduled runs
const DefaultInterval = 3 * time.Hour

var (
	// ErrSyncInProgress is returned when a run is requested while another one is running
	ErrSyncInProgress = errors.New("a sync run is already in progress")
	// ErrStopped is returned for runs requested after Stop
	ErrStopped = errors.New("sync coordinator is stopped")
)

// Runner syncs a set of threads once
type Runner interface {
	Run(ctx context.Context, threads []store.ThreadID) *pkgsync.Report
}

//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks github.com/stacklok/thv-history-sync/internal/sync/coordinator Coordinator

// Coordinator manages scheduled and manual sync runs
type Coordinator interface {
	// Start runs the schedule until ctx is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop ends the schedule and waits for in-flight runs
	Stop() error

	// RunOnce performs a run synchronously
	RunOnce(ctx context.Context) (*pkgsync.Report, error)

	// TriggerSync starts a run in the background
	TriggerSync(ctx context.Context) error

	// LastReport returns the report of the most recent completed run, or nil
	LastReport() *pkgsync.Report

	// Running reports whether a run is in flight
	Running() bool
}

type defaultCoordinator struct {
	runner Runner
	lister threads.Lister

	interval       time.Duration
	executeOnStart bool

	running atomic.Bool
	wg      sync.WaitGroup

	mu         sync.RWMutex
	lastReport *pkgsync.Report
	cancelFunc context.CancelFunc
	stopped    bool
	done       chan struct{}
}

// Option configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval sets the time between scheduled runs
func WithInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithExecuteOnStart runs a sync as soon as Start is called
func WithExecuteOnStart(enabled bool) Option {
	return func(c *defaultCoordinator) {
		c.executeOnStart = enabled
	}
}

// New creates a coordinator. Scheduled runs every DefaultInterval and a run
// on start are the defaults.
func New(runner Runner, lister threads.Lister, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		runner:         runner,
		lister:         lister,
		interval:       DefaultInterval,
		executeOnStart: true,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the schedule. It blocks until ctx is cancelled or Stop is called.
func (c *defaultCoordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.cancelFunc != nil {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already started")
	}
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	c.mu.Unlock()

	defer func() {
		close(c.done)
		slog.Info("Sync coordinator stopped")
	}()

	// runs outlive the schedule so Stop never interrupts one midway
	runCtx := context.WithoutCancel(ctx)

	slog.Info("Starting sync coordinator",
		"interval", c.interval,
		"execute_on_start", c.executeOnStart,
	)

	if c.executeOnStart && coordCtx.Err() == nil {
		c.scheduledRun(runCtx)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.scheduledRun(runCtx)
		case <-coordCtx.Done():
			return nil
		}
	}
}

// Stop cancels the schedule and waits for the loop and any triggered run.
// Runs requested afterwards fail with ErrStopped.
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	c.stopped = true
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync coordinator")
		cancel()
		<-c.done
	}
	c.wg.Wait()
	return nil
}

func (c *defaultCoordinator) scheduledRun(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		switch {
		case errors.Is(err, ErrSyncInProgress):
			slog.Info("Skipping scheduled sync, a run is already in progress")
			return
		case errors.Is(err, ErrStopped):
			return
		}
		slog.Error("Scheduled sync failed", "error", err)
	}
}

// RunOnce lists the threads and runs the sync over them
func (c *defaultCoordinator) RunOnce(ctx context.Context) (*pkgsync.Report, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.running.Store(false)
	return c.run(ctx)
}

// TriggerSync starts a run in the background, detached from ctx cancellation
func (c *defaultCoordinator) TriggerSync(ctx context.Context) error {
	// the stopped check and wg.Add share the lock Stop takes before wg.Wait
	c.mu.Lock()
	if err := c.acquireLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.wg.Add(1)
	c.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)
		if _, err := c.run(runCtx); err != nil {
			slog.Error("Triggered sync failed", "error", err)
		}
	}()
	return nil
}

func (c *defaultCoordinator) acquire() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acquireLocked()
}

// acquireLocked claims the run slot; c.mu must be held
func (c *defaultCoordinator) acquireLocked() error {
	if c.stopped {
		return ErrStopped
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	return nil
}

func (c *defaultCoordinator) run(ctx context.Context) (*pkgsync.Report, error) {
	ids, err := c.lister.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	if len(ids) == 0 {
		slog.Warn("No threads to synchronize")
	}

	report := c.runner.Run(ctx, ids)

	c.mu.Lock()
	c.lastReport = report
	c.mu.Unlock()
	return report, nil
}

func (c *defaultCoordinator) LastReport() *pkgsync.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReport
}

func (c *defaultCoordinator) Running() bool {
	return c.running.Load()
}
