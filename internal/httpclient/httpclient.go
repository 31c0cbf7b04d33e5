package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxErrorBody = 512

// StatusError reports a non-2xx response.
type StatusError struct {
	Name       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Name, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Name, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Client sends requests with a bounded number of attempts.
type Client struct {
	http     *http.Client
	attempts int
	backoff  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithAttempts sets how many times a request is tried.
func WithAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.attempts = attempts
		}
	}
}

// WithBackoff sets the pause before each retry.
func WithBackoff(backoff time.Duration) Option {
	return func(c *Client) {
		c.backoff = backoff
	}
}

// New creates a Client that tries each request three times.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: timeout},
		attempts: 3,
		backoff:  250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req until it gets a 2xx response or attempts run out. Client errors other
// than 429 are returned immediately. The caller owns the returned body.
func (c *Client) Do(req *http.Request, name string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(req.Context(), c.backoff); err != nil {
				return nil, err
			}
			if err := rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("error on %s request: %w", name, err)
			if req.Context().Err() != nil {
				return nil, lastErr
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		statusErr := &StatusError{Name: name, StatusCode: resp.StatusCode, Body: string(body)}
		if !statusErr.Retryable() {
			return nil, statusErr
		}
		lastErr = statusErr
	}
	return nil, lastErr
}

func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
