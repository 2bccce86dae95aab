package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/concordsync/concord/pkg/errors"
)

// DecodeResponse reads and closes the response body, maps non-2xx status
// codes to the error taxonomy, and unmarshals the payload into target.
// A nil target discards the payload.
//
// Rate limits and server errors become TransientErrors; every other 4xx
// becomes a RejectedError, which callers wrap with the operation and
// contact they were performing.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.TransientError{
			Directory: c.directory,
			Message:   "failed to read response body",
			Err:       err,
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to unmarshal

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &errors.TransientError{
			Directory:  c.directory,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    string(body),
		}

	default:
		return &errors.RejectedError{
			Directory:  c.directory,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapValidation("response", err)
	}
	return nil
}

// parseRetryAfter parses a Retry-After header value, either delay seconds
// or an HTTP date. Returns zero when absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// drainBody discards and closes a response body so the connection can be
// reused between retry attempts.
func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
