package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestHTTPMetrics_NilPassesThrough(t *testing.T) {
	t.Parallel()

	mw, err := MetricsMiddleware(nil)
	require.NoError(t, err)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)
	mw, err := MetricsMiddleware(mp)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(mw)
	r.Post("/v1/threads/{threadID}/messages", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/threads/"+id+"/messages", nil))
		require.Equal(t, http.StatusAccepted, rr.Code)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	data := collect(t, reader, HTTPMetricsMeterName)
	assert.Equal(t,
		map[string]int64{"/v1/threads/{threadID}/messages": 3, unknownRoute: 1},
		sumByAttr(t, data["thv_history_http_requests_total"], "route"))
	assert.Equal(t,
		map[string]int64{"202": 3, "404": 1},
		sumByAttr(t, data["thv_history_http_requests_total"], "status_code"))
}

func TestTracingMiddleware_NilProvider(t *testing.T) {
	t.Parallel()

	handler := TracingMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTracingMiddleware_Spans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		wantStatus codes.Code
	}{
		{name: "success", status: http.StatusOK, wantStatus: codes.Unset},
		{name: "client error is not a span error", status: http.StatusConflict, wantStatus: codes.Unset},
		{name: "server error", status: http.StatusServiceUnavailable, wantStatus: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

			r := chi.NewRouter()
			r.Use(TracingMiddleware(tp))
			r.Post("/v1/sync", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sync", nil))

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, "POST /v1/sync", span.Name())
			assert.Equal(t, tt.wantStatus, span.Status().Code)
			assert.Contains(t, span.Attributes(), semconv.HTTPRouteKey.String("/v1/sync"))
			assert.Contains(t, span.Attributes(), attribute.Int(string(semconv.HTTPResponseStatusCodeKey), tt.status))
		})
	}
}
