package internal

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"go.eggybyte.com/settings/core/utils"
)

func fastRetry(attempts int) utils.RetryConfig {
	return utils.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

// statusSequence answers with codes in order, repeating the last one.
func statusSequence(codes ...int) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	var calls atomic.Int32
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		code := codes[len(codes)-1]
		if n <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
	}))
	return srv, &calls, &lastBody
}

func TestRetryTransport(t *testing.T) {
	tests := []struct {
		name       string
		codes      []int
		attempts   int
		wantStatus int
		wantCalls  int32
	}{
		{"success", []int{200}, 3, 200, 1},
		{"retries unavailable", []int{503, 503, 200}, 3, 200, 3},
		{"returns last 5xx when exhausted", []int{502}, 3, 502, 3},
		{"does not retry 500", []int{500, 200}, 3, 500, 1},
		{"does not retry client errors", []int{404, 200}, 3, 404, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls, lastBody := statusSequence(tt.codes...)
			defer srv.Close()

			tr := NewRetryTransport(nil, fastRetry(tt.attempts), nil)
			req, _ := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader([]byte(`{"group":"chatbot"}`)))
			resp, err := tr.RoundTrip(req)
			if err != nil {
				t.Fatalf("RoundTrip() error = %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
			if got := lastBody.Load(); got != `{"group":"chatbot"}` {
				t.Errorf("body on last attempt = %v", got)
			}
		})
	}
}

func TestRetryTransport_UnreplayableBody(t *testing.T) {
	srv, calls, _ := statusSequence(503, 200)
	defer srv.Close()

	tr := NewRetryTransport(nil, fastRetry(3), nil)
	req, _ := http.NewRequest(http.MethodPost, srv.URL, io.NopCloser(bytes.NewReader([]byte("x"))))
	req.GetBody = nil
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if calls.Load() != 1 || resp.StatusCode != 503 {
		t.Errorf("calls = %d status = %d, want a single attempt", calls.Load(), resp.StatusCode)
	}
}

func TestRetryTransport_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewRetryTransport(nil, fastRetry(2), nil)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestRetryTransport_BreakerOpens(t *testing.T) {
	srv, calls, _ := statusSequence(500)
	defer srv.Close()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "settings-test",
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	})
	tr := NewRetryTransport(nil, fastRetry(1), breaker)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := tr.RoundTrip(req)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 500 {
			t.Fatalf("call %d: status %d", i, resp.StatusCode)
		}
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := tr.RoundTrip(req)
	if !IsBreakerOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker must not reach the server, calls = %d", calls.Load())
	}
	if breaker.State() != gobreaker.StateOpen {
		t.Errorf("state = %v", breaker.State())
	}
}

func TestRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 404: false, 500: false, 502: true, 503: true, 504: true} {
		if got := RetryableStatus(code); got != want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}
