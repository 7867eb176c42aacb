package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/pkg/logger"
)

const chatCompletionsPath = "/v1/chat/completions"

// Client handles communication with OpenAI-compatible chat completion APIs
type Client struct {
	apiKey     string
	baseURL    string // stored without trailing slash
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string, baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	// Determine base URL (prefer explicit parameter, then env, then default)
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		if env := os.Getenv("OPENAI_API_BASE"); env != "" {
			base = env
		} else {
			base = "https://api.openai.com"
		}
	}
	base = strings.TrimRight(base, "/")

	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log.Named("openai"),
	}
}

// Name implements ai.Provider
func (c *Client) Name() string {
	return "openai"
}

// Complete implements ai.Provider via the chat completions endpoint
func (c *Client) Complete(ctx context.Context, req ai.Request) (*ai.Response, error) {
	apiURL := c.baseURL + chatCompletionsPath

	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	type request struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature"`
	}

	reqBody := request{
		Model:       req.Model,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, ai.Validation("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, ai.Validation("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// The per-request client timeout also surfaces as a deadline error,
		// so only a dead caller context passes through unwrapped. Everything
		// else, timeouts included, is a retryable network failure.
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, ai.Transient("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("chat completion failed: %s %s", resp.Status, strings.TrimSpace(string(body)))
		switch ai.ClassifyStatus(resp.StatusCode) {
		case ai.KindThrottled:
			return nil, ai.Throttled(msg, nil)
		case ai.KindTransient:
			return nil, ai.Transient(msg, nil)
		case ai.KindValidation:
			return nil, ai.Validation(msg, nil)
		default:
			return nil, ai.Unknown(msg, nil)
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ai.Transient("failed to decode response", err)
	}

	if len(result.Choices) == 0 {
		return nil, ai.Unknown("no choices in response", nil)
	}

	text := result.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, ai.Unknown("empty completion", nil)
	}

	out := &ai.Response{
		Text:         text,
		InputTokens:  result.Usage.PromptTokens,
		OutputTokens: result.Usage.CompletionTokens,
	}
	if out.InputTokens == 0 && out.OutputTokens == 0 {
		out.InputTokens = ai.EstimateTokens(req.Prompt)
		out.OutputTokens = ai.EstimateTokens(text)
	}

	c.logger.Debug("Chat completion succeeded",
		logger.String("model", req.Model),
		logger.Int("input_tokens", out.InputTokens),
		logger.Int("output_tokens", out.OutputTokens))
	return out, nil
}
