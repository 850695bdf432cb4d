package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historyServer serves count threads, each holding messages stamped 1..count seconds.
func historyServer(t *testing.T, counts map[string]int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /threads/{id}", func(w http.ResponseWriter, r *http.Request) {
		n, ok := counts[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprintf(w, `{"messageCount":%d}`, n)
	})
	mux.HandleFunc("GET /threads/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		n := counts[r.PathValue("id")]
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		before, _ := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)

		var page []map[string]any
		for i := n; i >= 1 && len(page) < limit; i-- {
			ts := int64(i) * 1000
			if ts >= before {
				continue
			}
			page = append(page, map[string]any{"messageID": fmt.Sprintf("m%d", i), "timestamp": ts})
		}
		if page == nil {
			page = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, endpoint string, threads ...string) string {
	t.Helper()

	cfg := fmt.Sprintf(`remote:
  endpoint: %s
  maxRetries: 1
threads:
  ids: [%s]
sync:
  maxMessagesPerRequest: 2
  executeOnStart: false
storage:
  type: memory
`, endpoint, strings.Join(threads, ", "))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd_JSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
	assert.Contains(t, info["platform"], "/")
}

func TestRootCmd_Help(t *testing.T) {
	t.Parallel()

	out, err := execute(t)
	require.NoError(t, err)
	for _, sub := range []string{"serve", "sync", "migrate", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestSyncCmd(t *testing.T) {
	t.Parallel()

	srv := historyServer(t, map[string]int{"alpha": 5, "beta": 0})
	path := writeConfig(t, srv.URL, "alpha", "beta", "alpha")

	out, err := execute(t, "sync", "--config", path)
	require.NoError(t, err)

	var report struct {
		Summary struct {
			Threads      int   `json:"threads"`
			UpToDate     int   `json:"upToDate"`
			Synchronized int   `json:"synchronized"`
			Failed       int   `json:"failed"`
			Fetched      int64 `json:"fetched"`
		} `json:"summary"`
		Outcomes map[string]struct {
			Status string `json:"status"`
			Count  int64  `json:"count"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, 2, report.Summary.Threads)
	assert.Equal(t, 1, report.Summary.Synchronized)
	assert.Equal(t, 1, report.Summary.UpToDate)
	assert.Zero(t, report.Summary.Failed)
	assert.Equal(t, "synchronized", report.Outcomes["alpha"].Status)
	assert.EqualValues(t, 5, report.Outcomes["alpha"].Count)
	assert.Equal(t, "up-to-date", report.Outcomes["beta"].Status)
}

func TestSyncCmd_FailedThreadStillSucceeds(t *testing.T) {
	t.Parallel()

	srv := historyServer(t, map[string]int{"alpha": 1})
	path := writeConfig(t, srv.URL, "alpha", "missing")

	out, err := execute(t, "sync", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"failed": 1`)
}

func TestSyncCmd_ConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no config",
			args:    []string{"sync"},
			wantErr: "a configuration file is required",
		},
		{
			name:    "missing file",
			args:    []string{"sync", "--config", filepath.Join(t.TempDir(), "nope.yaml")},
			wantErr: "failed to load configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMigrateCmd_RequiresPostgres(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "http://remote.invalid", "alpha")

	_, err := execute(t, "migrate", "up", "--config", path, "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations require storage type postgres")
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"Y\n", true},
		{"no\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strconv.Quote(tt.input), func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			got, err := confirm(strings.NewReader(tt.input), &out, "Proceed?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "Proceed? (yes/no): ", out.String())
		})
	}
}
