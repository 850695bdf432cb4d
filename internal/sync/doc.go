// Package sync mirrors remote chat thread history into the local store.
//
// A run covers many independent threads. For each thread the Manager
//
//   - makes sure the thread partition exists,
//   - reads the local and remote message counts concurrently,
//   - reconciles them into a Plan (see Reconcile),
//   - ensures the unique key index, and
//   - lets the Paginator walk the remote history backward in time, upserting
//     each page before moving the Cursor past the oldest message it returned.
//
// The Orchestrator fans out one goroutine per thread and collects every
// thread's Outcome into a Report. A failing thread never affects the others,
// and Run itself never fails.
//
// # Reconciliation
//
//   - local == remote: nothing to do (ReasonUpToDate)
//   - local <  remote: download remote-local messages (ReasonBehind)
//   - local >  remote: the local copy has drifted; download the full remote
//     history again (ReasonDrift). Upserts by key make this safe.
//
// # Pagination
//
// The page size is fixed when the run starts to min(target, max per request)
// and the loop runs while Iteration*PageSize < Target. Empty pages count as
// an iteration, so a remote that stops returning data cannot stall the loop.
//
// # Errors
//
// Failures are reported as *Error values carrying an ErrorKind. Use
// errors.Is with the sentinel errors (ErrRemoteFetch, ErrStoreWrite, ...) to
// classify them.
//
// The sync/coordinator subpackage runs the orchestrator on a schedule.
package sync
