// Package remote is the client of the dividend data API. Every read falls back
// to the local store when the API cannot be reached.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/store"
)

// Default configuration values.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 1 * time.Second

	// DefaultHealthInterval is used by Monitor when given a non-positive interval.
	DefaultHealthInterval = 30 * time.Second

	// RefreshInterval is how long a successful fetch stays current.
	RefreshInterval = time.Hour
)

// Client fetches stock data from the remote API and keeps the local store in sync.
type Client struct {
	baseURL    string
	rootURL    string
	client     *http.Client
	store      *store.Store
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	conn       *Connectivity
	logger     *log.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the base retry delay. Attempt n waits n times this delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithConnectivity sets the connectivity tracker consulted before retries.
func WithConnectivity(conn *Connectivity) ClientOption {
	return func(c *Client) {
		c.conn = conn
	}
}

// WithLogger sets the logger. Cache write failures are logged, not returned.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithClock overrides the clock used for refresh bookkeeping.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a new Client for baseURL (e.g. http://localhost:8000/api).
func New(baseURL string, st *store.Store, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL:    baseURL,
		rootURL:    strings.TrimSuffix(baseURL, "/api"),
		client:     &http.Client{},
		store:      st,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		conn:       NewConnectivity(true),
		logger:     log.New(io.Discard, "", 0),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connectivity returns the tracker used by the client.
func (c *Client) Connectivity() *Connectivity {
	return c.conn
}

// get performs a GET with per-attempt timeout and linear backoff, decoding JSON into result.
// Offline state, timeouts and cancellation are not retried.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, result any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.getURL(ctx, endpoint, u, result)
}

func (c *Client) getURL(ctx context.Context, endpoint, u string, result any) error {
	start := time.Now()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if !c.conn.Online() {
				lastErr = fmt.Errorf("%w: %w", ErrOffline, lastErr)
				break
			}
			observability.RecordRemoteRetry(endpoint)
			if err := c.sleep(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}

		err := c.attempt(ctx, u, result)
		if err == nil {
			observability.RecordRemoteRequest(endpoint, "success", time.Since(start).Seconds())
			return nil
		}
		lastErr = err

		if !retryable(err) {
			break
		}
		c.logger.Printf("GET %s attempt %d failed: %v", endpoint, attempt+1, err)
	}

	observability.RecordRemoteRequest(endpoint, outcome(lastErr), time.Since(start).Seconds())

	var httpErr *HTTPError
	if errors.As(lastErr, &httpErr) {
		return fmt.Errorf("GET %s: %w", endpoint, lastErr)
	}
	return fmt.Errorf("GET %s: %w: %w", endpoint, ErrNetworkFailure, lastErr)
}

func (c *Client) attempt(ctx context.Context, u string, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// retryable reports whether another attempt may help.
func retryable(err error) bool {
	if isTimeout(err) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return fmt.Sprintf("http_%d", httpErr.Status)
	case errors.Is(err, ErrOffline):
		return "offline"
	case isTimeout(err):
		return "timeout"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
