package app

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"time"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// fakeRemote serves fixed per-thread histories, newest first
type fakeRemote struct {
	mu       gosync.Mutex
	messages map[store.ThreadID][]store.Message
}

func newFakeRemote(counts map[store.ThreadID]int) *fakeRemote {
	base := time.UnixMilli(1_700_000_000_000)
	f := &fakeRemote{messages: make(map[store.ThreadID][]store.Message)}
	for thread, n := range counts {
		msgs := make([]store.Message, n)
		for i := range msgs {
			key := fmt.Sprintf("%s-%d", thread, i)
			msgs[i] = store.Message{
				Key:       key,
				ThreadID:  thread,
				Timestamp: base.Add(-time.Duration(i) * time.Second),
				Payload:   json.RawMessage(`{"messageID":"` + key + `"}`),
			}
		}
		f.messages[thread] = msgs
	}
	return f
}

func (f *fakeRemote) MessageCount(_ context.Context, thread store.ThreadID) (*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.messages[thread]))
	return &n, nil
}

func (f *fakeRemote) History(_ context.Context, thread store.ThreadID, limit int, before time.Time) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Message
	for _, m := range f.messages[thread] {
		if len(out) == limit {
			break
		}
		if m.Timestamp.Before(before) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRemote) ListThreads(_ context.Context) ([]store.ThreadID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.ThreadID, 0, len(f.messages))
	for thread := range f.messages {
		out = append(out, thread)
	}
	return out, nil
}

func testConfig(threads ...string) *config.Config {
	executeOnStart := false
	return &config.Config{
		Remote:  config.RemoteConfig{Endpoint: "http://remote.invalid"},
		Threads: config.ThreadsConfig{IDs: threads},
		Sync: config.SyncConfig{
			Interval:              "1h",
			ExecuteOnStart:        &executeOnStart,
			MaxMessagesPerRequest: 2,
		},
		Storage: config.StorageConfig{Type: config.StorageTypeMemory},
	}
}
