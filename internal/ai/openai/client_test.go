package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", srv.URL, timeout, logger.NewNop())
}

func TestCompleteRequestTimeoutIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}, 50*time.Millisecond)

	_, err := c.Complete(context.Background(), ai.Request{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("Complete() = nil error, want timeout")
	}
	if kind := ai.Classify(err); kind != ai.KindTransient {
		t.Errorf("Classify(%v) = %v, want %v", err, kind, ai.KindTransient)
	}
}

func TestCompleteCallerCancellationNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, ai.Request{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatal("Complete() = nil error, want cancellation")
	}
	if kind := ai.Classify(err); kind != ai.KindUnknown {
		t.Errorf("Classify(%v) = %v, want %v", err, kind, ai.KindUnknown)
	}
}

func TestCompleteStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   ai.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, ai.KindThrottled},
		{"server error", http.StatusInternalServerError, ai.KindTransient},
		{"bad request", http.StatusBadRequest, ai.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}, time.Minute)

			_, err := c.Complete(context.Background(), ai.Request{Model: "m", Prompt: "p"})
			if err == nil {
				t.Fatal("Complete() = nil error, want failure")
			}
			if kind := ai.Classify(err); kind != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", err, kind, tt.want)
			}
		})
	}
}

func TestCompleteParsesResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "A fine summary."}}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 40}
		}`)
	}, time.Minute)

	resp, err := c.Complete(context.Background(), ai.Request{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "A fine summary." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.InputTokens != 120 || resp.OutputTokens != 40 {
		t.Errorf("tokens = %d/%d, want 120/40", resp.InputTokens, resp.OutputTokens)
	}
}
