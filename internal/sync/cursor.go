package sync

import (
	"time"

	"github.com/stacklok/thv-history-sync/internal/store"
)

// DefaultMaxMessagesPerRequest caps a page when no limit is configured
const DefaultMaxMessagesPerRequest = 500

// Cursor is the pagination state of one thread run. It is a value: Advance
// returns a new Cursor and leaves the receiver untouched.
type Cursor struct {
	// UpperTimeBound is exclusive; the next page holds messages strictly older
	UpperTimeBound time.Time
	Target         int64
	Fetched        int64
	PageSize       int
	Iteration      int
}

// NewCursor starts pagination at start. The page size is fixed here for the
// whole run.
func NewCursor(target int64, maxPerRequest int, start time.Time) Cursor {
	if maxPerRequest <= 0 {
		maxPerRequest = DefaultMaxMessagesPerRequest
	}
	pageSize := maxPerRequest
	if target < int64(pageSize) {
		pageSize = int(max(target, 0))
	}
	return Cursor{
		UpperTimeBound: start,
		Target:         target,
		PageSize:       pageSize,
	}
}

// Done reports whether the planned number of pages has been requested
func (c Cursor) Done() bool {
	return int64(c.Iteration)*int64(c.PageSize) >= c.Target
}

// Advance moves past page. An empty page only counts the iteration.
func (c Cursor) Advance(page []store.Message) Cursor {
	c.Iteration++
	if len(page) == 0 {
		return c
	}

	oldest := page[0].Timestamp
	for _, m := range page[1:] {
		if m.Timestamp.Before(oldest) {
			oldest = m.Timestamp
		}
	}
	c.UpperTimeBound = oldest.Add(-time.Millisecond)
	c.Fetched += int64(len(page))
	return c
}
