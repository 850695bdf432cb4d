package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/stacklok/thv-history-sync/internal/store"
)

var (
	baseTime = time.UnixMilli(1_700_000_000_000).UTC()
	runStart = baseTime.Add(24 * time.Hour)
)

func fixedClock() time.Time { return runStart }

func ptr[T any](v T) *T { return &v }

// genMessages returns n messages one second apart, oldest first
func genMessages(thread store.ThreadID, n int) []store.Message {
	msgs := make([]store.Message, n)
	for i := range msgs {
		ts := baseTime.Add(time.Duration(i) * time.Second)
		key := fmt.Sprintf("m-%05d", i)
		msgs[i] = store.Message{
			Key:       key,
			ThreadID:  thread,
			Timestamp: ts,
			Payload:   json.RawMessage(fmt.Sprintf(`{"messageID":%q,"timestamp":%d}`, key, ts.UnixMilli())),
		}
	}
	return msgs
}

type historyCall struct {
	limit  int
	before time.Time
}

// fakeRemote serves in-memory thread histories the way the remote API pages them
type fakeRemote struct {
	mu       gosync.Mutex
	threads  map[store.ThreadID][]store.Message
	counts   map[store.ThreadID]*int64
	failPage map[store.ThreadID]int
	calls    map[store.ThreadID][]historyCall
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		threads:  make(map[store.ThreadID][]store.Message),
		counts:   make(map[store.ThreadID]*int64),
		failPage: make(map[store.ThreadID]int),
		calls:    make(map[store.ThreadID][]historyCall),
	}
}

func (f *fakeRemote) set(thread store.ThreadID, msgs []store.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[thread] = msgs
}

func (f *fakeRemote) historyCalls(thread store.ThreadID) []historyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]historyCall(nil), f.calls[thread]...)
}

func (f *fakeRemote) MessageCount(_ context.Context, thread store.ThreadID) (*int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.counts[thread]; ok {
		return c, nil
	}
	n := int64(len(f.threads[thread]))
	return &n, nil
}

func (f *fakeRemote) History(_ context.Context, thread store.ThreadID, limit int, before time.Time) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[thread] = append(f.calls[thread], historyCall{limit: limit, before: before})
	if n, ok := f.failPage[thread]; ok && len(f.calls[thread]) == n {
		return nil, errors.New("connection reset by peer")
	}

	all := f.threads[thread]
	var page []store.Message
	for i := len(all) - 1; i >= 0 && len(page) < limit; i-- {
		if all[i].Timestamp.Before(before) {
			page = append(page, all[i])
		}
	}
	return page, nil
}
