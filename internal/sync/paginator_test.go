package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/store/memory"
	storemocks "github.com/stacklok/thv-history-sync/internal/store/mocks"
)

func TestPaginator_ThreePages(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	msgs := genMessages("t1", 1200)
	remote.set("t1", msgs)
	st := memory.New()

	cur, err := NewPaginator(remote, st, 500).Run(context.Background(), "t1", 1200, runStart)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), cur.Fetched)
	assert.Equal(t, 3, cur.Iteration)
	assert.Equal(t, []historyCall{
		{limit: 500, before: runStart},
		{limit: 500, before: msgs[700].Timestamp.Add(-time.Millisecond)},
		{limit: 500, before: msgs[200].Timestamp.Add(-time.Millisecond)},
	}, remote.historyCalls("t1"))
	assert.Len(t, st.Messages("t1"), 1200)
}

func TestPaginator_PageSizeStaysFixed(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.set("t1", genMessages("t1", 501))

	cur, err := NewPaginator(remote, memory.New(), 500).Run(context.Background(), "t1", 501, runStart)
	require.NoError(t, err)

	calls := remote.historyCalls("t1")
	require.Len(t, calls, 2)
	// the last request asks for a full page even though one message is missing
	assert.Equal(t, 500, calls[1].limit)
	assert.Equal(t, int64(501), cur.Fetched)
}

func TestPaginator_EmptyPagesTerminate(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.set("t1", genMessages("t1", 2))

	cur, err := NewPaginator(remote, memory.New(), 2).Run(context.Background(), "t1", 6, runStart)
	require.NoError(t, err)

	assert.Len(t, remote.historyCalls("t1"), 3)
	assert.Equal(t, int64(2), cur.Fetched)
	assert.Equal(t, 3, cur.Iteration)
}

func TestPaginator_ZeroTargetFetchesNothing(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.set("t1", genMessages("t1", 10))

	cur, err := NewPaginator(remote, memory.New(), 500).Run(context.Background(), "t1", 0, runStart)
	require.NoError(t, err)
	assert.Empty(t, remote.historyCalls("t1"))
	assert.Zero(t, cur.Fetched)
}

func TestPaginator_FetchErrorKeepsWrittenPages(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote()
	remote.set("t1", genMessages("t1", 1200))
	remote.failPage["t1"] = 2
	st := memory.New()

	cur, err := NewPaginator(remote, st, 500).Run(context.Background(), "t1", 1200, runStart)
	require.ErrorIs(t, err, ErrRemoteFetch)
	assert.Equal(t, KindRemoteFetch, KindOf(err))
	assert.Equal(t, int64(500), cur.Fetched)
	assert.Len(t, st.Messages("t1"), 500)
}

func TestPaginator_UpsertError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := storemocks.NewMockStore(ctrl)

	remote := newFakeRemote()
	remote.set("t1", genMessages("t1", 10))

	st.EXPECT().
		UpsertBatch(gomock.Any(), store.ThreadID("t1"), gomock.Len(10)).
		Return(store.UpsertResult{Inserted: 9, Failed: 1}, errors.New("1 of 10 records failed"))

	cur, err := NewPaginator(remote, st, 500).Run(context.Background(), "t1", 10, runStart)
	require.ErrorIs(t, err, ErrStoreWrite)
	assert.Zero(t, cur.Fetched)
	assert.Len(t, remote.historyCalls("t1"), 1)
}
