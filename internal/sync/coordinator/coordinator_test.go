package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/thv-history-sync/internal/store"
	pkgsync "github.com/stacklok/thv-history-sync/internal/sync"
	syncmocks "github.com/stacklok/thv-history-sync/internal/sync/mocks"
	"github.com/stacklok/thv-history-sync/internal/threads"
	threadmocks "github.com/stacklok/thv-history-sync/internal/threads/mocks"
)

func upToDate(_ context.Context, thread store.ThreadID) pkgsync.Outcome {
	return pkgsync.Outcome{Thread: thread, Status: pkgsync.StatusUpToDate}
}

func TestCoordinator_Stop_BeforeStart(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	c := New(pkgsync.NewOrchestrator(syncmocks.NewMockManager(ctrl)), threads.NewStatic(nil))
	assert.NoError(t, c.Stop())
}

func TestCoordinator_StoppedRejectsRuns(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	// no SyncThread expectation: any run after Stop fails the test
	c := New(pkgsync.NewOrchestrator(syncmocks.NewMockManager(ctrl)), threads.NewStatic([]string{"a"}),
		WithInterval(time.Hour),
	)
	require.NoError(t, c.Stop())

	assert.ErrorIs(t, c.Start(context.Background()), ErrStopped, "Start after Stop skips the run on start")
	assert.ErrorIs(t, c.TriggerSync(context.Background()), ErrStopped)
	_, err := c.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, c.Running())
	assert.Nil(t, c.LastReport())
}

func TestCoordinator_TriggerAfterStop(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(upToDate).Times(1)

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}))
	require.NoError(t, c.TriggerSync(context.Background()))
	require.NoError(t, c.Stop())
	require.NotNil(t, c.LastReport(), "Stop waits for the triggered run")

	assert.ErrorIs(t, c.TriggerSync(context.Background()), ErrStopped)
	assert.False(t, c.Running())
}

func TestCoordinator_RunOnce(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	manager.EXPECT().SyncThread(gomock.Any(), store.ThreadID("a")).DoAndReturn(upToDate)
	manager.EXPECT().SyncThread(gomock.Any(), store.ThreadID("b")).DoAndReturn(
		func(_ context.Context, thread store.ThreadID) pkgsync.Outcome {
			return pkgsync.Outcome{Thread: thread, Status: pkgsync.StatusSynchronized, Count: 12}
		})

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a", "b"}))
	assert.Nil(t, c.LastReport())

	report, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pkgsync.Summary{Threads: 2, UpToDate: 1, Synchronized: 1, Fetched: 12}, report.Summary())
	assert.Same(t, report, c.LastReport())
	assert.False(t, c.Running())
}

func TestCoordinator_RunOnce_ListerError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	lister := threadmocks.NewMockLister(ctrl)
	cause := errors.New("remote down")
	lister.EXPECT().ListThreads(gomock.Any()).Return(nil, cause)

	c := New(pkgsync.NewOrchestrator(syncmocks.NewMockManager(ctrl)), lister)
	_, err := c.RunOnce(context.Background())
	require.ErrorIs(t, err, cause)
	assert.Nil(t, c.LastReport())
	assert.False(t, c.Running(), "the run slot is released after a failure")
}

func TestCoordinator_TriggerSync_RejectsOverlap(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	started := make(chan struct{})
	release := make(chan struct{})
	manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, thread store.ThreadID) pkgsync.Outcome {
			close(started)
			<-release
			return upToDate(ctx, thread)
		})

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.TriggerSync(ctx))
	<-started

	// cancelling the request context does not stop the detached run
	cancel()

	assert.True(t, c.Running())
	assert.ErrorIs(t, c.TriggerSync(context.Background()), ErrSyncInProgress)
	_, err := c.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(release)
	require.NoError(t, c.Stop())
	assert.False(t, c.Running())
	require.NotNil(t, c.LastReport())
	assert.Equal(t, 1, c.LastReport().Summary().UpToDate)
}

func TestCoordinator_ExecuteOnStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		executeOnStart bool
		wantRun        bool
	}{
		{name: "runs immediately", executeOnStart: true, wantRun: true},
		{name: "waits for the interval", executeOnStart: false, wantRun: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			manager := syncmocks.NewMockManager(ctrl)
			var runs atomic.Int32
			manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, thread store.ThreadID) pkgsync.Outcome {
					runs.Add(1)
					return upToDate(ctx, thread)
				}).AnyTimes()

			c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}),
				WithInterval(time.Hour),
				WithExecuteOnStart(tt.executeOnStart),
			)

			errCh := make(chan error, 1)
			go func() { errCh <- c.Start(context.Background()) }()

			if tt.wantRun {
				require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
			} else {
				time.Sleep(50 * time.Millisecond)
				assert.Zero(t, runs.Load())
			}

			require.NoError(t, c.Stop())
			require.NoError(t, <-errCh)
		})
	}
}

func TestCoordinator_ScheduledRuns(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	var runs atomic.Int32
	manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, thread store.ThreadID) pkgsync.Outcome {
			runs.Add(1)
			return upToDate(ctx, thread)
		}).MinTimes(3)

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}),
		WithInterval(20*time.Millisecond),
		WithExecuteOnStart(false),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
	require.NoError(t, c.Stop())
}

func TestCoordinator_StopWaitsForScheduledRun(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	started := make(chan struct{})
	var finished atomic.Bool
	manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, thread store.ThreadID) pkgsync.Outcome {
			close(started)
			time.Sleep(100 * time.Millisecond)
			// the run context is never cancelled by Stop
			if ctx.Err() == nil {
				finished.Store(true)
			}
			return upToDate(ctx, thread)
		})

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}), WithInterval(time.Hour))

	go func() { _ = c.Start(context.Background()) }()
	<-started

	require.NoError(t, c.Stop())
	assert.True(t, finished.Load())
	assert.NotNil(t, c.LastReport())
}

func TestCoordinator_StartTwice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)
	ran := make(chan struct{})
	manager.EXPECT().SyncThread(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, thread store.ThreadID) pkgsync.Outcome {
			close(ran)
			return upToDate(ctx, thread)
		})

	c := New(pkgsync.NewOrchestrator(manager), threads.NewStatic([]string{"a"}), WithInterval(time.Hour))

	go func() { _ = c.Start(context.Background()) }()
	<-ran

	require.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Stop())
}
