// Package threads decides which threads a sync run covers.
package threads

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// Lister enumerates the threads to synchronize. It is called once per run and
// never cached, so thread changes are picked up by the next run.
//
//go:generate mockgen -destination=mocks/mock_lister.go -package=mocks -source=threads.go
type Lister interface {
	ListThreads(ctx context.Context) ([]store.ThreadID, error)
}

// Static returns the same configured list every time
type Static struct {
	ids []store.ThreadID
}

// NewStatic creates a Static lister. Blank and duplicate IDs are dropped.
func NewStatic(ids []string) *Static {
	return &Static{ids: normalize(ids)}
}

// ListThreads returns a copy of the configured threads
func (s *Static) ListThreads(_ context.Context) ([]store.ThreadID, error) {
	return append([]store.ThreadID(nil), s.ids...), nil
}

// Remote asks the remote API for its threads on every call
type Remote struct {
	lister Lister
}

// NewRemote wraps a remote thread listing
func NewRemote(lister Lister) *Remote {
	return &Remote{lister: lister}
}

// ListThreads fetches the thread list and drops blank and duplicate IDs
func (r *Remote) ListThreads(ctx context.Context) ([]store.ThreadID, error) {
	ids, err := r.lister.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote threads: %w", err)
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}
	out := normalize(raw)
	slog.Debug("Listed remote threads", "count", len(out))
	return out, nil
}

// FromConfig builds the lister selected by the threads configuration.
// remoteLister backs the "remote" source.
func FromConfig(cfg *config.ThreadsConfig, remoteLister Lister) (Lister, error) {
	switch cfg.GetSource() {
	case config.ThreadSourceConfig:
		return NewStatic(cfg.IDs), nil
	case config.ThreadSourceRemote:
		if remoteLister == nil {
			return nil, fmt.Errorf("remote thread source requires a remote lister")
		}
		return NewRemote(remoteLister), nil
	default:
		return nil, fmt.Errorf("unsupported thread source: %s", cfg.GetSource())
	}
}

func normalize(ids []string) []store.ThreadID {
	seen := make(map[string]struct{}, len(ids))
	out := make([]store.ThreadID, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, store.ThreadID(id))
	}
	return out
}
