// Package remote provides access to the remote chat API that thread history
// is mirrored from.
package remote

import (
	"context"
	"time"

	"github.com/stacklok/thv-history-sync/internal/store"
)

// Source is the remote side of a synchronization.
//
//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=source.go
type Source interface {
	// MessageCount returns the number of messages the remote reports for the
	// thread. A nil count with a nil error means the remote did not report one.
	MessageCount(ctx context.Context, thread store.ThreadID) (*int64, error)

	// History returns up to limit messages with a timestamp strictly before
	// the given time, newest first. Fewer than limit (or none) is allowed.
	History(ctx context.Context, thread store.ThreadID, limit int, before time.Time) ([]store.Message, error)
}

// ThreadLister enumerates the threads the remote knows about
type ThreadLister interface {
	ListThreads(ctx context.Context) ([]store.ThreadID, error)
}
