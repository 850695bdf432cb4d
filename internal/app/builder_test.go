package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/store/memory"
	pkgsync "github.com/stacklok/thv-history-sync/internal/sync"
)

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	_, err := baseConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")

	cfg, err := baseConfig(WithConfig(testConfig()))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, cfg.address)
	assert.Equal(t, defaultRequestTimeout, cfg.requestTimeout)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080"},
		{name: "host and port", addr: "127.0.0.1:9090"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "ipv6", addr: "[::1]:8080"},
		{name: "empty", addr: "", wantErr: true},
		{name: "no port", addr: "localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &historyAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestWithMaxBodyBytes(t *testing.T) {
	t.Parallel()

	cfg := &historyAppConfig{}
	require.NoError(t, WithMaxBodyBytes(512)(cfg))
	assert.Equal(t, int64(512), cfg.maxBodyBytes)
	assert.Error(t, WithMaxBodyBytes(-1)(cfg))
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	st := memory.New()
	src := newFakeRemote(map[store.ThreadID]int{"t1": 5, "t2": 0})

	report, err := RunOnce(context.Background(),
		WithConfig(testConfig("t1", "t2", "t1")),
		WithStore(st),
		WithSource(src, nil),
	)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	assert.Equal(t, pkgsync.StatusSynchronized, report.Outcomes["t1"].Status)
	assert.Equal(t, pkgsync.StatusUpToDate, report.Outcomes["t2"].Status)
	assert.Len(t, st.Messages("t1"), 5)
}

func TestRunOnce_RemoteThreadSource(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Threads.Source = config.ThreadSourceRemote

	st := memory.New()
	src := newFakeRemote(map[store.ThreadID]int{"a": 1, "b": 3})

	report, err := RunOnce(context.Background(), WithConfig(cfg), WithStore(st), WithSource(src, src))
	require.NoError(t, err)

	summary := report.Summary()
	assert.Equal(t, 2, summary.Threads)
	assert.Equal(t, 2, summary.Synchronized)
	assert.Len(t, st.Messages("b"), 3)
}

func TestRunOnce_RemoteThreadSourceWithoutLister(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Threads.Source = config.ThreadSourceRemote

	_, err := RunOnce(context.Background(),
		WithConfig(cfg),
		WithStore(memory.New()),
		WithSource(newFakeRemote(nil), nil),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote lister")
}

func TestRunOnce_UnknownStorage(t *testing.T) {
	t.Parallel()

	cfg := testConfig("t1")
	cfg.Storage.Type = "redis"

	_, err := RunOnce(context.Background(), WithConfig(cfg), WithSource(newFakeRemote(nil), nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open store")
}
