// Package integration provides integration tests for thv-history-sync. They
// run the complete service against a fake remote chat API and a SQLite store,
// covering the initial download, incremental runs, restarts and live capture.
package integration
