package ai

import (
	"context"
)

// Request is a single text-generation request. The prompt content is opaque
// to this layer; callers build it, providers transport it.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response is a completed generation with token accounting
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider defines the interface for text-generation backends. Errors
// returned by Complete must be classified (see Error) so the retry layer
// can decide what is retryable.
type Provider interface {
	// Complete sends one request and returns the generated text with usage
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name identifies the backend (e.g. "openai", "gemini")
	Name() string
}

// EstimateTokens approximates a token count when the backend does not report
// usage. Roughly 4 characters per token for English text.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
