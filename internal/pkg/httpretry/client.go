// Package httpretry wraps an HTTP client with bounded retries for calls to
// external verification providers. Transient failures (network errors, 429,
// 5xx) are retried with exponential backoff and full jitter; client errors
// and context cancellation are not.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// Doer executes HTTP requests. Both *http.Client and *Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client retries transient failures on top of an underlying Doer.
type Client struct {
	inner      Doer
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// New wraps the given Doer. A nil inner falls back to a 30s-timeout
// http.Client; maxRetries <= 0 means 3 retries after the initial attempt.
func New(inner Doer, maxRetries int) *Client {
	if inner == nil {
		inner = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  time.Second,
		maxDelay:   30 * time.Second,
	}
}

// Do executes the request, retrying on retryable statuses and transport
// errors. On the final attempt the response is returned as-is so the caller
// can inspect status and body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			// Rewind the body before resending
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := c.backoff(attempt)
			log.Printf("httpretry: attempt %d/%d for %s %s (waiting %s)",
				attempt, c.maxRetries, req.Method, req.URL.Host, delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
		}

		resp, err := c.inner.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !retryable(resp.StatusCode) || attempt == c.maxRetries {
			return resp, nil
		}

		// Drain for connection reuse before retrying
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// backoff is exponential with full jitter, floored at 100ms.
func (c *Client) backoff(attempt int) time.Duration {
	exp := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if exp > float64(c.maxDelay) {
		exp = float64(c.maxDelay)
	}
	d := time.Duration(rand.Float64() * exp)
	if d < 100*time.Millisecond {
		d = 100 * time.Millisecond
	}
	return d
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
