package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dubsync/internal/services"
)

func replyWith(t *testing.T, choice map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestCompleteSendsPromptsAndTemperature(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		replyWith(t, map[string]any{"message": map[string]any{"content": "你好世界"}})(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: server.URL, Temperature: 0.3})
	reply, err := client.Complete(context.Background(), "be concise", "Hello world")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "你好世界" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", got.Model)
	}
	if got.Temperature != 0.3 {
		t.Fatalf("expected temperature 0.3, got %v", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "Hello world" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Complete(context.Background(), "", "Hello")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteAcceptsDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta": {"delta": map[string]any{"content": "delta reply"}},
		"text":  {"finish_reason": "stop", "text": "text reply"},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(replyWith(t, choice))
			defer server.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
			reply, err := client.Complete(context.Background(), "", "prompt")
			if err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
			if reply != name+" reply" {
				t.Fatalf("unexpected reply %q", reply)
			}
		})
	}
}

func TestCompleteRetriesOnHTTP429(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		replyWith(t, map[string]any{"message": map[string]any{"content": "ok"}})(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	if _, err := client.Complete(context.Background(), "", "prompt"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestCompleteRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := ""
		if calls.Add(1) >= 3 {
			content = "third time"
		}
		replyWith(t, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})(w, r)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithRetryMaxAttempts(5),
	)
	reply, err := client.Complete(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if reply != "third time" || calls.Load() != 3 {
		t.Fatalf("unexpected reply %q after %d calls", reply, calls.Load())
	}
}

func TestCompleteDoesNotRetryUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithRetryBackoff(0, 0))
	_, err := client.Complete(context.Background(), "", "prompt")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestCompleteExhaustedRetriesAreTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL}, WithRetryBackoff(0, 0), WithRetryMaxAttempts(2))
	_, err := client.Complete(context.Background(), "", "prompt")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(replyWith(t, map[string]any{"message": map[string]any{"content": "OK"}}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		"  你好  ":                 "你好",
		`"你好"`:                   "你好",
		"“你好”":                   "你好",
		"```text\n你好\n```":        "你好",
		"```\n你好\n```":            "你好",
		`"a" and "b"`:            `"a" and "b"`,
		"plain answer":           "plain answer",
	}
	for in, want := range tests {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := retryPolicy{maxAttempts: 5, baseDelay: time.Second, maxDelay: 3 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}
