// Package httpclient is the JSON-over-HTTP transport shared by the
// summarizer backends.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetries = 3
	maxDelay       = 30 * time.Second
	errBodyLimit   = 512
)

// APIError is a non-2xx response. Body is truncated; the summarizer only
// ever sends sanitized text, so echoes of the request are safe to show.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration // server-requested wait, zero if absent
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client posts JSON documents to one API.
type Client struct {
	base    string
	header  http.Header
	hc      *http.Client
	retries int
	backoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithBearer authenticates with an Authorization: Bearer header.
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHeader sets a header on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithBackoff sets the wait before the first retry. Each further retry
// doubles it, up to 30s.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithRetries sets how many times a temporary failure is retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// New returns a Client for the API rooted at base.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		header:  make(http.Header),
		hc:      &http.Client{Timeout: 120 * time.Second},
		retries: defaultRetries,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends in as JSON to path and decodes the response into out.
// Rate limits and server errors are retried, honoring Retry-After; any
// other non-2xx status comes back at once as *APIError.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("httpclient: encode request: %w", err)
	}
	url := c.base + path

	for attempt := 0; ; attempt++ {
		body, err := c.post(ctx, url, payload)
		if err == nil {
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("httpclient: decode response: %w", err)
			}
			return nil
		}
		apiErr, ok := err.(*APIError)
		if !ok || !apiErr.Temporary() || attempt >= c.retries {
			return err
		}
		if err := sleep(ctx, c.delay(attempt, apiErr)); err != nil {
			return err
		}
	}
}

// post makes one attempt. A non-2xx status is returned as *APIError.
func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response: %w", err)
	}
	if resp.StatusCode/100 == 2 {
		return body, nil
	}
	if len(body) > errBodyLimit {
		body = body[:errBodyLimit]
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
	}
}

// delay is the wait before retry number attempt+1.
func (c *Client) delay(attempt int, e *APIError) time.Duration {
	if e.RetryAfter > 0 {
		return min(e.RetryAfter, maxDelay)
	}
	return min(c.backoff<<attempt, maxDelay)
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
