package threads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/threads/mocks"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	s := NewStatic([]string{"a", " b ", "", "a", "c"})
	got, err := s.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.ThreadID{"a", "b", "c"}, got)

	// callers cannot modify the configured list
	got[0] = "z"
	again, err := s.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.ThreadID("a"), again[0])
}

func TestRemote(t *testing.T) {
	t.Parallel()

	t.Run("normalizes and asks on every call", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		inner := mocks.NewMockLister(ctrl)
		gomock.InOrder(
			inner.EXPECT().ListThreads(gomock.Any()).Return([]store.ThreadID{"x", "x", "y"}, nil),
			inner.EXPECT().ListThreads(gomock.Any()).Return([]store.ThreadID{"x", "y", "z"}, nil),
		)

		r := NewRemote(inner)
		first, err := r.ListThreads(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []store.ThreadID{"x", "y"}, first)

		second, err := r.ListThreads(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []store.ThreadID{"x", "y", "z"}, second)
	})

	t.Run("wraps errors", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		inner := mocks.NewMockLister(ctrl)
		cause := errors.New("unauthorized")
		inner.EXPECT().ListThreads(gomock.Any()).Return(nil, cause)

		_, err := NewRemote(inner).ListThreads(context.Background())
		require.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "failed to list remote threads")
	})
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	remote := mocks.NewMockLister(ctrl)

	l, err := FromConfig(&config.ThreadsConfig{IDs: []string{"a"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Static{}, l)

	l, err = FromConfig(&config.ThreadsConfig{Source: config.ThreadSourceRemote}, remote)
	require.NoError(t, err)
	assert.IsType(t, &Remote{}, l)

	_, err = FromConfig(&config.ThreadsConfig{Source: config.ThreadSourceRemote}, nil)
	require.Error(t, err)

	_, err = FromConfig(&config.ThreadsConfig{Source: "ldap"}, remote)
	require.Error(t, err)
}
