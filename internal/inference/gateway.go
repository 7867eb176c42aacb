package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/mwhitby/summit/internal/ai"
	"github.com/mwhitby/summit/internal/observability/metrics"
	"github.com/mwhitby/summit/internal/usage"
	"github.com/mwhitby/summit/pkg/logger"
)

// Result is the outcome of one successful gateway invocation
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration // wall time across all attempts
	Attempts     int
}

// FailedError is the terminal error after the retry budget is exhausted or a
// non-retryable failure occurs. It carries the classification of the last
// attempt.
type FailedError struct {
	Kind     ai.ErrorKind
	Attempts int
	Err      error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("inference failed after %d attempt(s) (%s): %v", e.Attempts, e.Kind, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// Gateway wraps an ai.Provider with rate-limit-aware retry, backoff and
// usage accounting. It holds no per-call state; retries of one logical
// request run sequentially inside Invoke, while independent Invoke calls may
// be in flight concurrently.
type Gateway struct {
	provider ai.Provider
	policy   BackoffPolicy
	ledger   *usage.Ledger
	sleeper  Sleeper
	rng      func() float64
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

// Option customizes a Gateway; used by tests to inject clocks
type Option func(*Gateway)

// WithSleeper replaces the real sleeper
func WithSleeper(s Sleeper) Option {
	return func(g *Gateway) { g.sleeper = s }
}

// WithJitterSource replaces the jitter randomness source
func WithJitterSource(rng func() float64) Option {
	return func(g *Gateway) { g.rng = rng }
}

// WithMetrics enables Prometheus instrumentation of invocations
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a Gateway over the given provider. The ledger is shared
// across all gateways of a run.
func NewGateway(provider ai.Provider, policy BackoffPolicy, ledger *usage.Ledger, log *logger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		policy:   policy,
		ledger:   ledger,
		sleeper:  realSleeper{},
		rng:      defaultRNG,
		logger:   log.Named("inference"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke issues the request, retrying throttled and transient failures per
// the backoff policy. label identifies the call in the usage ledger (meeting
// name or "global_summary"). Validation failures are never retried. Every
// call, successful or not, lands in the ledger exactly once.
func (g *Gateway) Invoke(ctx context.Context, label string, req ai.Request) (*Result, error) {
	start := time.Now()
	attempts := 0
	throttleRetries := 0
	transientRetries := 0

	var lastErr error
	var lastKind ai.ErrorKind

	for {
		if err := ctx.Err(); err != nil {
			return nil, g.fail(label, req.Model, start, attempts, ai.KindUnknown, err)
		}

		attempts++
		resp, err := g.provider.Complete(ctx, req)
		if err == nil {
			result := &Result{
				Text:         resp.Text,
				InputTokens:  resp.InputTokens,
				OutputTokens: resp.OutputTokens,
				Latency:      time.Since(start),
				Attempts:     attempts,
			}
			g.ledger.Record(usage.Record{
				Context:      label,
				ModelID:      req.Model,
				InputTokens:  resp.InputTokens,
				OutputTokens: resp.OutputTokens,
				Latency:      result.Latency,
				Attempts:     attempts,
				Outcome:      usage.OutcomeSuccess,
			})
			if g.metrics != nil {
				g.metrics.RecordInference(string(usage.OutcomeSuccess), result.Latency.Seconds(), resp.InputTokens, resp.OutputTokens)
			}
			if attempts > 1 {
				g.logger.Info("Request succeeded after retries",
					logger.String("context", label),
					logger.Int("attempts", attempts))
			}
			return result, nil
		}

		lastErr = err
		lastKind = ai.Classify(err)

		var retry int
		switch lastKind {
		case ai.KindThrottled:
			throttleRetries++
			if throttleRetries > g.policy.MaxRetries {
				return nil, g.fail(label, req.Model, start, attempts, lastKind, lastErr)
			}
			retry = throttleRetries
		case ai.KindTransient:
			transientRetries++
			if transientRetries > g.policy.TransientRetries {
				return nil, g.fail(label, req.Model, start, attempts, lastKind, lastErr)
			}
			retry = transientRetries
		default:
			// Validation and unknown errors are not retryable
			return nil, g.fail(label, req.Model, start, attempts, lastKind, lastErr)
		}

		if g.metrics != nil {
			g.metrics.RecordRetry(lastKind.String())
		}

		wait := g.policy.Wait(retry, g.rng)
		g.logger.Warn("Request failed, backing off",
			logger.String("context", label),
			logger.String("kind", lastKind.String()),
			logger.Int("attempt", attempts),
			logger.Duration("backoff", wait),
			logger.Error(err))

		if err := g.sleeper.Sleep(ctx, wait); err != nil {
			return nil, g.fail(label, req.Model, start, attempts, lastKind, err)
		}
	}
}

// fail records the terminal failure in the ledger and builds the error
func (g *Gateway) fail(label, model string, start time.Time, attempts int, kind ai.ErrorKind, err error) error {
	g.ledger.Record(usage.Record{
		Context:   label,
		ModelID:   model,
		Latency:   time.Since(start),
		Attempts:  attempts,
		Outcome:   usage.OutcomeFailed,
		ErrorKind: kind.String(),
	})
	if g.metrics != nil {
		g.metrics.RecordInference(string(usage.OutcomeFailed), time.Since(start).Seconds(), 0, 0)
	}
	g.logger.Error("Request failed terminally",
		logger.String("context", label),
		logger.String("kind", kind.String()),
		logger.Int("attempts", attempts),
		logger.Error(err))
	return &FailedError{Kind: kind, Attempts: attempts, Err: err}
}
