// Package coordinator schedules history sync runs.
//
// A Coordinator lists the threads and hands them to a Runner (normally a
// sync.Orchestrator) once at startup, when configured, and then on a fixed
// interval. Runs can also be triggered manually; at most one run is in flight
// at any time and a request that would overlap is rejected with
// ErrSyncInProgress.
//
// Runs are detached from the caller's cancellation: stopping the coordinator
// waits for an in-flight run to finish instead of interrupting it halfway
// through a page.
//
//	coord := coordinator.New(orchestrator, lister,
//	    coordinator.WithInterval(3*time.Hour),
//	    coordinator.WithExecuteOnStart(true),
//	)
//	go coord.Start(ctx)
//	defer coord.Stop()
package coordinator
