package app

import (
	"github.com/stacklok/thv-history-sync/internal/capture"
	"github.com/stacklok/thv-history-sync/internal/service"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/sync/coordinator"
	"github.com/stacklok/thv-history-sync/internal/threads"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Store is the local message store, closed on Stop
	Store store.Store

	// Threads enumerates the threads of every run
	Threads threads.Lister

	// SyncCoordinator runs scheduled and manual syncs
	SyncCoordinator coordinator.Coordinator

	// Capture is nil unless live capture is enabled
	Capture *capture.Filter

	// HistoryService backs the HTTP API
	HistoryService service.HistoryService
}
