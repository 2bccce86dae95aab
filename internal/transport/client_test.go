package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/concordsync/concord/pkg/errors"
)

// testClient returns a client with near-zero backoff.
func testClient() *Client {
	return New("test", "test-token",
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithMaxAttempts(3),
	)
}

func TestClientAppliesTokenAndHeaders(t *testing.T) {
	var gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient()
	if err := client.Get(context.Background(), server.URL, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
}

func TestClientDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Ada","id":7}`))
	}))
	defer server.Close()

	var out struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	}
	client := testClient()
	if err := client.Get(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Name != "Ada" || out.ID != 7 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient()
	if err := client.Get(context.Background(), server.URL, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hit %d times, want 3", hits.Load())
	}
	if client.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", client.Calls())
	}
}

func TestClientStopsAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient()
	err := client.Get(context.Background(), server.URL, nil)
	if !errors.IsTransient(err) {
		t.Fatalf("Get() error = %v, want transient", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hit %d times, want 3", hits.Load())
	}
}

func TestClientDoesNotRetryRejections(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	client := testClient()
	err := client.Get(context.Background(), server.URL, nil)
	if !errors.IsRejected(err) {
		t.Fatalf("Get() error = %v, want rejected", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestClientMapsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient()
	err := client.Get(context.Background(), server.URL, nil)
	if !errors.IsNotFound(err) {
		t.Errorf("Get() error = %v, want not found", err)
	}
	if !errors.IsRejected(err) {
		t.Errorf("Get() error = %v, want rejected too", err)
	}
}

func TestClientMapsRateLimit(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := New("test", "test-token",
		WithBackoff(time.Millisecond, 2*time.Millisecond),
		WithMaxAttempts(2),
	)
	start := time.Now()
	err := client.Get(context.Background(), server.URL, nil)
	if !errors.IsRateLimited(err) {
		t.Fatalf("Get() error = %v, want rate limited", err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hit %d times, want 2", hits.Load())
	}
	// Retry-After: 1 overrides the millisecond backoff
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("elapsed = %v, want >= 1s from Retry-After", elapsed)
	}

	var transient *errors.TransientError
	if !stderrors.As(err, &transient) {
		t.Fatalf("Get() error = %T, want TransientError", err)
	}
	if transient.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", transient.RetryAfter)
	}
}

func TestClientRetriesPostBody(t *testing.T) {
	var hits atomic.Int64
	var lastBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody = string(body)
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient()
	payload := map[string]string{"first_name": "Ada"}
	if err := client.Post(context.Background(), server.URL, payload, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if lastBody != `{"first_name":"Ada"}` {
		t.Errorf("retried body = %q, want original payload", lastBody)
	}
}

func TestClientContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New("test", "test-token",
		WithBackoff(10*time.Second, 30*time.Second),
		WithMaxAttempts(5),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.Get(ctx, server.URL, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.IsCanceled(err) {
			t.Errorf("Get() error = %v, want canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Get() did not return after cancellation")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "30", 30 * time.Second},
		{"zero seconds", "0", 0},
		{"negative", "-5", 0},
		{"garbage", "soon", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	t.Run("http date", func(t *testing.T) {
		at := time.Now().Add(10 * time.Second).UTC().Format(http.TimeFormat)
		got := parseRetryAfter(at)
		if got <= 0 || got > 10*time.Second {
			t.Errorf("parseRetryAfter(%q) = %v, want within (0, 10s]", at, got)
		}
	})

	t.Run("past http date", func(t *testing.T) {
		at := time.Now().Add(-10 * time.Second).UTC().Format(http.TimeFormat)
		if got := parseRetryAfter(at); got != 0 {
			t.Errorf("parseRetryAfter(%q) = %v, want 0", at, got)
		}
	})
}

func TestBackoffCapped(t *testing.T) {
	client := New("test", "test-token", WithBackoff(time.Second, 4*time.Second))

	for attempt := 1; attempt <= 10; attempt++ {
		got := client.backoffFor(attempt, 0)
		if got <= 0 {
			t.Errorf("backoffFor(%d) = %v, want positive", attempt, got)
		}
		if got > 5*time.Second {
			t.Errorf("backoffFor(%d) = %v, want <= cap plus jitter", attempt, got)
		}
	}

	// Retry-After wins over the computed backoff but stays capped
	if got := client.backoffFor(1, 2*time.Second); got != 2*time.Second {
		t.Errorf("backoffFor with Retry-After = %v, want 2s", got)
	}
	if got := client.backoffFor(1, time.Minute); got != 4*time.Second {
		t.Errorf("backoffFor with large Retry-After = %v, want capped at 4s", got)
	}
}
