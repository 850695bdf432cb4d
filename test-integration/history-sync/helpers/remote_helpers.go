package helpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// RemoteMessage is a message as served by MockRemote
type RemoteMessage struct {
	MessageID string `json:"messageID"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// MockRemote is a fake chat history API. Messages are kept oldest first.
type MockRemote struct {
	mu             sync.Mutex
	server         *httptest.Server
	threads        map[string][]RemoteMessage
	countOverride  map[string]int64
	historyQueries map[string]int
	base           time.Time
	seq            int
}

// NewMockRemote starts a fake remote. Close it with Close.
func NewMockRemote() *MockRemote {
	m := &MockRemote{
		threads:        make(map[string][]RemoteMessage),
		countOverride:  make(map[string]int64),
		historyQueries: make(map[string]int),
		base:           time.Now().Add(-24 * time.Hour).Truncate(time.Millisecond),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /threads", m.listThreads)
	mux.HandleFunc("GET /threads/{id}", m.threadInfo)
	mux.HandleFunc("GET /threads/{id}/messages", m.history)
	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the base URL of the fake remote
func (m *MockRemote) URL() string {
	return m.server.URL
}

// Close stops the fake remote
func (m *MockRemote) Close() {
	m.server.Close()
}

// AddMessages appends n new messages to the thread, each one second after the previous
func (m *MockRemote) AddMessages(thread string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for range n {
		m.seq++
		m.threads[thread] = append(m.threads[thread], RemoteMessage{
			MessageID: fmt.Sprintf("%s-%d", thread, m.seq),
			Timestamp: m.base.Add(time.Duration(m.seq) * time.Second).UnixMilli(),
			Text:      fmt.Sprintf("message %d", m.seq),
		})
	}
}

// ReportCount makes the thread info endpoint report count instead of the real number
func (m *MockRemote) ReportCount(thread string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countOverride[thread] = count
}

// HistoryQueries returns how many history pages were requested for the thread
func (m *MockRemote) HistoryQueries(thread string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyQueries[thread]
}

func (m *MockRemote) listThreads(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	writeJSON(w, ids)
}

func (m *MockRemote) threadInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	m.mu.Lock()
	msgs, ok := m.threads[id]
	count, overridden := m.countOverride[id]
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if !overridden {
		count = int64(len(msgs))
	}
	writeJSON(w, map[string]any{"id": id, "messageCount": count})
}

func (m *MockRemote) history(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}
	before, err := strconv.ParseInt(r.URL.Query().Get("before"), 10, 64)
	if err != nil {
		http.Error(w, "invalid before", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.historyQueries[id]++
	msgs := m.threads[id]
	page := make([]RemoteMessage, 0, limit)
	for i := len(msgs) - 1; i >= 0 && len(page) < limit; i-- {
		if msgs[i].Timestamp < before {
			page = append(page, msgs[i])
		}
	}
	m.mu.Unlock()

	writeJSON(w, page)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
