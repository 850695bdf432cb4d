// Package httpclient provides the HTTP client used to talk to the remote chat API.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTries is the default number of attempts for a retryable failure
	DefaultMaxTries = 3

	// MaxResponseSize is the maximum allowed response size (100MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is the user agent string for HTTP requests
	UserAgent = "thv-history-sync/1.0"
)

// Client is an interface for HTTP operations
type Client interface {
	// Get performs an HTTP GET request and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

// DefaultClient is the default HTTP client implementation. Transport errors,
// 429 and 5xx responses are retried with exponential backoff; every other
// status is returned immediately.
type DefaultClient struct {
	client     *http.Client
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithHTTPClient replaces the underlying *http.Client, e.g. with one carrying
// OAuth2 credentials. Its timeout is overridden by the client timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DefaultClient) {
		if c != nil {
			d.client = c
		}
	}
}

// WithMaxTries sets the number of attempts made for a retryable failure
func WithMaxTries(n uint) Option {
	return func(d *DefaultClient) {
		if n > 0 {
			d.maxTries = n
		}
	}
}

// WithBackOff sets the retry schedule factory
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(d *DefaultClient) {
		d.newBackOff = newBackOff
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout.
// If timeout is 0, uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration, opts ...Option) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	d := &DefaultClient{
		client:   &http.Client{},
		maxTries: DefaultMaxTries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.client.Timeout = timeout
	return d
}

// Get performs an HTTP GET request, retrying transient failures
func (c *DefaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	attempt := 0
	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		body, err := c.get(ctx, url)
		if err == nil {
			return body, nil
		}
		if !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		slog.Debug("Retrying remote request", "url", url, "attempt", attempt, "error", err)
		return nil, err
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxTries(c.maxTries))
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return false
	}
	var sizeErr *sizeError
	return !errors.As(err, &sizeErr)
}

type requestError struct{ err error }

func (e *requestError) Error() string { return fmt.Sprintf("failed to create request: %v", e.err) }
func (e *requestError) Unwrap() error { return e.err }

type sizeError struct{ msg string }

func (e *sizeError) Error() string { return e.msg }

func (c *DefaultClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &requestError{err: err}
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to execute request: %w", err))
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	if resp.ContentLength > MaxResponseSize {
		return nil, &sizeError{msg: fmt.Sprintf(
			"response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))}
	}

	// +1 to detect if the limit is exceeded
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &sizeError{msg: fmt.Sprintf(
			"response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))}
	}

	return body, nil
}
