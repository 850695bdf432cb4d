// Package service provides the operations behind the HTTP API of the history
// sync server.
package service

import (
	"context"
	"errors"

	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/sync"
)

var (
	// ErrSyncInProgress is returned when a manual sync overlaps a running one
	ErrSyncInProgress = errors.New("a sync run is already in progress")
	// ErrShuttingDown is returned for manual syncs requested during shutdown
	ErrShuttingDown = errors.New("the service is shutting down")
	// ErrNoReport is returned before the first sync run has completed
	ErrNoReport = errors.New("no sync run has completed yet")
	// ErrCaptureDisabled is returned when live capture is not enabled
	ErrCaptureDisabled = errors.New("live capture is disabled")
	// ErrInvalidMessage is returned for capture payloads that cannot be parsed
	ErrInvalidMessage = errors.New("invalid message")
)

// ThreadSummary describes one configured thread and its local history
type ThreadSummary struct {
	ID    store.ThreadID `json:"id"`
	Count int64          `json:"count"`
	// Partition is the backing table or collection, when the store keeps a catalog
	Partition string `json:"partition,omitempty"`
}

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go

// HistoryService defines the operations exposed over HTTP
type HistoryService interface {
	// CheckReadiness checks that the local store is reachable
	CheckReadiness(ctx context.Context) error

	// ListThreads returns the threads of the next run with their local counts
	ListThreads(ctx context.Context) ([]ThreadSummary, error)

	// LastReport returns the most recent run report or ErrNoReport
	LastReport(ctx context.Context) (*sync.Report, error)

	// TriggerSync starts a run in the background or returns ErrSyncInProgress
	TriggerSync(ctx context.Context) error

	// Capture parses a live message and hands it to the capture filter.
	// The returned message is the one passed down the pipeline.
	Capture(ctx context.Context, thread store.ThreadID, raw []byte) (store.Message, error)
}
