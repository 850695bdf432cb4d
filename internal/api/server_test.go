package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/thv-history-sync/internal/api"
	"github.com/stacklok/thv-history-sync/internal/service"
	"github.com/stacklok/thv-history-sync/internal/service/mocks"
)

func TestNewServer_Routes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockHistoryService(ctrl)
	mockSvc.EXPECT().ListThreads(gomock.Any()).Return([]service.ThreadSummary{{ID: "t1", Count: 1}}, nil)

	server := api.NewServer(mockSvc)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK},
		{name: "version", path: "/version", wantStatus: http.StatusOK},
		{name: "v1 threads", path: "/v1/threads", wantStatus: http.StatusOK},
		{name: "metrics not configured", path: "/metrics", wantStatus: http.StatusNotFound},
		{name: "unknown", path: "/v2/threads", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}
}

func TestNewServer_MetricsHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "thv_history_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	ctrl := gomock.NewController(t)
	server := api.NewServer(mocks.NewMockHistoryService(ctrl),
		api.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "thv_history_test_total 1")
}

func TestNewServer_Middlewares(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	ctrl := gomock.NewController(t)
	server := api.NewServer(mocks.NewMockHistoryService(ctrl),
		api.WithMiddlewares(mw("first"), api.LoggingMiddleware, mw("second")))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"first", "second"}, order)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestNewServer_MaxBodyBytes(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	server := api.NewServer(mocks.NewMockHistoryService(ctrl), api.WithMaxBodyBytes(8))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/threads/t1/messages", strings.NewReader(`{"messageID":"m1"}`))
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}
