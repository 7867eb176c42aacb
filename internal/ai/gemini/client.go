package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/pkg/logger"
)

// Client handles communication with the Google Gemini API
type Client struct {
	client *genai.Client
	logger *logger.Logger
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, log *logger.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{
		client: client,
		logger: log.Named("gemini"),
	}, nil
}

// Name implements ai.Provider
func (c *Client) Name() string {
	return "gemini"
}

// Complete implements ai.Provider
func (c *Client) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, classify(err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, ai.Unknown("empty response from Gemini", nil)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, ai.Unknown("no text parts in Gemini response", nil)
	}

	out := &ai.Response{Text: text.String()}
	if result.UsageMetadata != nil {
		out.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	if out.InputTokens == 0 && out.OutputTokens == 0 {
		out.InputTokens = ai.EstimateTokens(req.Prompt)
		out.OutputTokens = ai.EstimateTokens(out.Text)
	}

	c.logger.Debug("Generation succeeded",
		logger.String("model", req.Model),
		logger.Int("input_tokens", out.InputTokens),
		logger.Int("output_tokens", out.OutputTokens))
	return out, nil
}

// classify maps a genai error to a classified ai.Error. The SDK surfaces API
// failures as strings carrying the HTTP status and gRPC status name.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(msg, "quota"):
		return ai.Throttled("Gemini rate limited", err)
	case strings.Contains(msg, "500"),
		strings.Contains(msg, "503"),
		strings.Contains(msg, "UNAVAILABLE"),
		strings.Contains(msg, "DEADLINE_EXCEEDED"),
		strings.Contains(msg, "timeout"):
		return ai.Transient("Gemini request failed", err)
	case strings.Contains(msg, "400"),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "404"),
		strings.Contains(msg, "INVALID_ARGUMENT"),
		strings.Contains(msg, "PERMISSION_DENIED"),
		strings.Contains(msg, "NOT_FOUND"):
		return ai.Validation("Gemini rejected the request", err)
	default:
		return ai.Unknown("Gemini request failed", err)
	}
}
