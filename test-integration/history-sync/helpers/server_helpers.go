package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/onsi/gomega"

	"github.com/stacklok/thv-history-sync/internal/app"
	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/service"
)

// Report is the subset of a sync report the tests look at
type Report struct {
	RunID   string `json:"runId"`
	Summary struct {
		Threads      int   `json:"threads"`
		UpToDate     int   `json:"upToDate"`
		Synchronized int   `json:"synchronized"`
		Failed       int   `json:"failed"`
		Fetched      int64 `json:"fetched"`
	} `json:"summary"`
	Outcomes map[string]Outcome `json:"outcomes"`
}

// Outcome is one thread entry of a Report
type Outcome struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Local  int64  `json:"local"`
	Remote *int64 `json:"remote"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// ServerTestHelper manages the service lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	httpClient *http.Client
	app        *app.HistoryApp
}

// NewServerTestHelper creates a new server test helper
func NewServerTestHelper(ctx context.Context, configPath string) *ServerTestHelper {
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// StartServer builds the service and serves it on a random local port
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	historyApp, err := app.NewHistoryApp(s.ctx, app.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = historyApp.Stop(time.Second)
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.app = historyApp
	s.baseURL = "http://" + ln.Addr().String()

	go func() {
		if err := historyApp.Serve(ln); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the service
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits until the readiness probe succeeds
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// GetThreads returns the threads and their stored message counts
func (s *ServerTestHelper) GetThreads() map[string]int64 {
	resp, err := s.httpClient.Get(s.baseURL + "/v1/threads")
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	defer func() {
		_ = resp.Body.Close()
	}()
	gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))

	var body struct {
		Threads []service.ThreadSummary `json:"threads"`
	}
	gomega.Expect(json.NewDecoder(resp.Body).Decode(&body)).To(gomega.Succeed())

	out := make(map[string]int64, len(body.Threads))
	for _, t := range body.Threads {
		out[string(t.ID)] = t.Count
	}
	return out
}

// LastReport returns the report of the last finished run, or nil before the first one
func (s *ServerTestHelper) LastReport() (*Report, error) {
	resp, err := s.httpClient.Get(s.baseURL + "/v1/sync/last")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
		var r Report
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			return nil, err
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// TriggerSync asks for a sync run and returns the response status code
func (s *ServerTestHelper) TriggerSync() int {
	resp, err := s.httpClient.Post(s.baseURL+"/v1/sync", "application/json", nil)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	_ = resp.Body.Close()
	return resp.StatusCode
}

// SyncAndWait triggers a run and waits for a report with a new run ID
func (s *ServerTestHelper) SyncAndWait(timeout time.Duration) *Report {
	previous, err := s.LastReport()
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	gomega.Eventually(s.TriggerSync, timeout, 100*time.Millisecond).Should(gomega.Equal(http.StatusAccepted))

	return s.waitForReport(previous, timeout)
}

// WaitForReport waits for the first report to appear
func (s *ServerTestHelper) WaitForReport(timeout time.Duration) *Report {
	return s.waitForReport(nil, timeout)
}

func (s *ServerTestHelper) waitForReport(previous *Report, timeout time.Duration) *Report {
	var report *Report
	gomega.Eventually(func() error {
		r, err := s.LastReport()
		if err != nil {
			return err
		}
		if r == nil || (previous != nil && r.RunID == previous.RunID) {
			return fmt.Errorf("no new report yet")
		}
		report = r
		return nil
	}, timeout, 100*time.Millisecond).Should(gomega.Succeed(), "a sync run should finish")
	return report
}

// PostMessage sends a live message for capture and returns the response status code
func (s *ServerTestHelper) PostMessage(thread string, msg any) int {
	data, err := json.Marshal(msg)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	resp, err := s.httpClient.Post(
		fmt.Sprintf("%s/v1/threads/%s/messages", s.baseURL, url.PathEscape(thread)),
		"application/json",
		bytes.NewReader(data),
	)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	_ = resp.Body.Close()
	return resp.StatusCode
}
