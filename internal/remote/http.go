package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/httpclient"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// HTTPSource reads thread counts and history pages from a JSON HTTP API:
//
//	GET {endpoint}/threads                                   thread list
//	GET {endpoint}/threads/{id}                              thread info with the message count
//	GET {endpoint}/threads/{id}/messages?limit=N&before=MS   history page, newest first
type HTTPSource struct {
	client   httpclient.Client
	endpoint string
	fields   config.FieldsConfig
}

var (
	_ Source       = (*HTTPSource)(nil)
	_ ThreadLister = (*HTTPSource)(nil)
)

// NewHTTPSource creates a source on top of an HTTP client
func NewHTTPSource(client httpclient.Client, endpoint string, fields config.FieldsConfig) *HTTPSource {
	return &HTTPSource{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		fields:   fields,
	}
}

// NewHTTPSourceFromConfig builds the authenticated HTTP client described by
// the remote configuration and returns a source using it.
func NewHTTPSourceFromConfig(ctx context.Context, cfg *config.RemoteConfig) (*HTTPSource, error) {
	httpClient, err := NewAuthenticatedClient(ctx, cfg.Auth)
	if err != nil {
		return nil, err
	}

	client := httpclient.NewDefaultClient(
		cfg.GetTimeout(),
		httpclient.WithHTTPClient(httpClient),
		httpclient.WithMaxTries(uint(cfg.GetMaxRetries())),
	)

	slog.Info("Remote source configured",
		"endpoint", cfg.Endpoint,
		"auth", cfg.Auth.GetType(),
		"timeout", cfg.GetTimeout())

	return NewHTTPSource(client, cfg.Endpoint, cfg.GetFields()), nil
}

func (s *HTTPSource) threadURL(thread store.ThreadID) string {
	return s.endpoint + "/threads/" + url.PathEscape(string(thread))
}

// MessageCount returns the count the remote reports for the thread
func (s *HTTPSource) MessageCount(ctx context.Context, thread store.ThreadID) (*int64, error) {
	body, err := s.client.Get(ctx, s.threadURL(thread))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", thread, err)
	}

	count, err := parseCount(body, s.fields.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to parse thread %s: %w", thread, err)
	}
	return count, nil
}

// History fetches one page of messages strictly older than before
func (s *HTTPSource) History(
	ctx context.Context,
	thread store.ThreadID,
	limit int,
	before time.Time,
) ([]store.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("before", strconv.FormatInt(before.UnixMilli(), 10))

	body, err := s.client.Get(ctx, s.threadURL(thread)+"/messages?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history of thread %s: %w", thread, err)
	}

	msgs, err := parseMessages(thread, body, s.fields)
	if err != nil {
		return nil, fmt.Errorf("failed to parse history of thread %s: %w", thread, err)
	}
	return msgs, nil
}

// ListThreads returns every thread the remote knows about
func (s *HTTPSource) ListThreads(ctx context.Context) ([]store.ThreadID, error) {
	body, err := s.client.Get(ctx, s.endpoint+"/threads")
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	threads, err := parseThreads(body, s.fields.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to parse thread list: %w", err)
	}
	return threads, nil
}
