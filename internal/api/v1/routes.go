// Package v1 provides the thread, sync and capture endpoints.
package v1

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/thv-history-sync/internal/api/common"
	"github.com/stacklok/thv-history-sync/internal/service"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// DefaultMaxBodyBytes bounds a captured message body
const DefaultMaxBodyBytes int64 = 1 << 20

// ThreadListResponse is returned by GET /threads
type ThreadListResponse struct {
	Threads []service.ThreadSummary `json:"threads"`
}

// SyncResponse is returned when a run has been started
type SyncResponse struct {
	Status string `json:"status"`
}

// Routes holds the v1 handlers
type Routes struct {
	service      service.HistoryService
	maxBodyBytes int64
}

// RouterOption configures the v1 router
type RouterOption func(*Routes)

// WithMaxBodyBytes limits the size of captured message bodies
func WithMaxBodyBytes(n int64) RouterOption {
	return func(r *Routes) {
		if n > 0 {
			r.maxBodyBytes = n
		}
	}
}

// Router creates the v1 router
func Router(svc service.HistoryService, opts ...RouterOption) http.Handler {
	routes := &Routes{service: svc, maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(routes)
	}

	r := chi.NewRouter()
	r.Get("/threads", routes.listThreads)
	r.Post("/threads/{threadID}/messages", routes.captureMessage)
	r.Get("/sync/last", routes.lastReport)
	r.Post("/sync", routes.triggerSync)

	return r
}

func (rr *Routes) listThreads(w http.ResponseWriter, r *http.Request) {
	summaries, err := rr.service.ListThreads(r.Context())
	if err != nil {
		slog.Error("Failed to list threads", "error", err)
		common.WriteErrorResponse(w, "failed to list threads", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []service.ThreadSummary{}
	}
	common.WriteJSONResponse(w, ThreadListResponse{Threads: summaries}, http.StatusOK)
}

func (rr *Routes) lastReport(w http.ResponseWriter, r *http.Request) {
	report, err := rr.service.LastReport(r.Context())
	if errors.Is(err, service.ErrNoReport) {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get last sync report", "error", err)
		common.WriteErrorResponse(w, "failed to get last sync report", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, report, http.StatusOK)
}

func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	err := rr.service.TriggerSync(r.Context())
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrShuttingDown):
		common.WriteErrorResponse(w, err.Error(), http.StatusServiceUnavailable)
	case err != nil:
		slog.Error("Failed to start sync", "error", err)
		common.WriteErrorResponse(w, "failed to start sync", http.StatusInternalServerError)
	default:
		common.WriteJSONResponse(w, SyncResponse{Status: "started"}, http.StatusAccepted)
	}
}

func (rr *Routes) captureMessage(w http.ResponseWriter, r *http.Request) {
	thread, err := common.GetAndValidateURLParam(r, "threadID")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rr.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.WriteErrorResponse(w, "message body too large", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteErrorResponse(w, "failed to read message body", http.StatusBadRequest)
		return
	}

	msg, err := rr.service.Capture(r.Context(), store.ThreadID(thread), body)
	switch {
	case errors.Is(err, service.ErrCaptureDisabled):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidMessage):
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		slog.Error("Failed to capture message", "thread", thread, "error", err)
		common.WriteErrorResponse(w, "failed to capture message", http.StatusInternalServerError)
	default:
		common.WriteJSONResponse(w, msg, http.StatusAccepted)
	}
}
