// Package transport provides the HTTP client shared by both directory
// clients: token authentication, JSON encode/decode, status-code to error
// mapping, and a bounded retry loop for transient failures.
//
// Every request is counted, retries included, so the session report shows
// the real number of API calls a run cost. Retries apply only to transient
// classes (rate limits, 5xx, network errors); rejections go straight back
// to the caller. A transient failure that escapes this package has
// exhausted its retry budget.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/concordsync/concord/pkg/constants"
	"github.com/concordsync/concord/pkg/errors"
)

// clientOptions holds the configuration for a Client.
type clientOptions struct {
	httpClient  *http.Client
	auth        Authenticator
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// clientDefaults returns the default client configuration.
func clientDefaults() *clientOptions {
	return &clientOptions{
		httpClient:  &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:        &BearerAuth{},
		maxAttempts: constants.MaxRetryAttempts,
		baseBackoff: constants.RetryBackoff,
		maxBackoff:  constants.MaxRetryBackoff,
	}
}

// apply applies the options to the configuration.
func (o *clientOptions) apply(opts ...Option) *clientOptions {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Client.
type Option func(*clientOptions)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = h
	}
}

// WithAuthenticator overrides the default Bearer authenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(o *clientOptions) {
		o.auth = a
	}
}

// WithMaxAttempts sets the total attempt budget for transient failures.
func WithMaxAttempts(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithBackoff sets the base and maximum backoff durations.
func WithBackoff(base, max time.Duration) Option {
	return func(o *clientOptions) {
		if base > 0 {
			o.baseBackoff = base
		}
		if max > 0 {
			o.maxBackoff = max
		}
	}
}

// Client is an authenticated JSON HTTP client for one directory API.
type Client struct {
	http      *http.Client
	auth      Authenticator
	directory string
	token     string
	calls     atomic.Int64

	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// New creates a transport client for the named directory. The directory
// name appears in errors and the session report.
func New(directory, token string, opts ...Option) *Client {
	options := clientDefaults().apply(opts...)
	return &Client{
		http:        options.httpClient,
		auth:        options.auth,
		directory:   directory,
		token:       token,
		maxAttempts: options.maxAttempts,
		baseBackoff: options.baseBackoff,
		maxBackoff:  options.maxBackoff,
	}
}

// Directory returns the directory name this client talks to.
func (c *Client) Directory() string {
	return c.directory
}

// Calls returns the number of HTTP requests sent so far, retries included.
func (c *Client) Calls() int64 {
	return c.calls.Load()
}

// Do performs an HTTP request with authentication applied, retrying
// transient failures with exponential backoff. A Retry-After header on a
// retryable response overrides the computed backoff. The final retryable
// response is returned undrained so DecodeResponse can map it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}

	for attempt := 1; ; attempt++ {
		attemptReq := req
		if attempt > 1 {
			attemptReq = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, &errors.TransientError{
						Directory: c.directory,
						Message:   "failed to rewind request body for retry",
						Err:       err,
					}
				}
				attemptReq.Body = body
			}
		}

		resp, err := c.http.Do(attemptReq)
		c.calls.Add(1)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.maxAttempts {
				return nil, &errors.TransientError{
					Directory: c.directory,
					Message:   fmt.Sprintf("request failed after %d attempts", attempt),
					Err:       err,
				}
			}
			if err := sleepContext(ctx, c.backoffFor(attempt, 0)); err != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt >= c.maxAttempts {
			return resp, nil
		}

		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		drainBody(resp)
		if err := sleepContext(ctx, c.backoffFor(attempt, retryAfter)); err != nil {
			return nil, err
		}
	}
}

// Get performs a GET request and decodes the JSON response into target.
func (c *Client) Get(ctx context.Context, url string, target any) error {
	return c.JSON(ctx, http.MethodGet, url, nil, target)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body, target any) error {
	return c.JSON(ctx, http.MethodPost, url, body, target)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, url string, body, target any) error {
	return c.JSON(ctx, http.MethodPut, url, body, target)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, url string, body, target any) error {
	return c.JSON(ctx, http.MethodPatch, url, body, target)
}

// Delete performs a DELETE request, discarding any response body.
func (c *Client) Delete(ctx context.Context, url string) error {
	return c.JSON(ctx, http.MethodDelete, url, nil, nil)
}

// JSON performs a request with an optional JSON body and decodes the JSON
// response into target. A nil body sends no payload; a nil target
// discards the response body after checking the status.
func (c *Client) JSON(ctx context.Context, method, url string, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WrapValidation("request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return errors.WrapValidation("request", err)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return c.DecodeResponse(resp, target)
}

// backoffFor computes the wait before the next attempt. A server-requested
// Retry-After takes precedence; both paths are capped at the maximum
// backoff.
func (c *Client) backoffFor(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, c.maxBackoff)
	}

	backoff := c.baseBackoff << (attempt - 1)
	if backoff <= 0 || backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	if jitter := backoff / 4; jitter > 0 {
		backoff += rand.N(jitter)
	}
	return backoff
}

// retryableStatus reports whether a status code marks a transient failure.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// sleepContext waits for the duration or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
