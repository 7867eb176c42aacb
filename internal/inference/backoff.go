package inference

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy is the retry/backoff configuration consumed by the Gateway.
// It is a plain value so tests can construct policies without config files.
type BackoffPolicy struct {
	Base             time.Duration // initial wait
	Cap              time.Duration // maximum wait (before jitter)
	Jitter           time.Duration // upper bound of random jitter added to each wait
	MaxRetries       int           // retry budget for throttled calls
	TransientRetries int           // retry budget for transient failures
}

// Wait returns the backoff duration before the k-th retry (k >= 1):
// min(Cap, Base*2^(k-1)) plus up to Jitter of random noise. rng supplies the
// jitter fraction in [0,1) so tests can pin it.
func (p BackoffPolicy) Wait(k int, rng func() float64) time.Duration {
	if k < 1 {
		k = 1
	}
	wait := p.Base
	for i := 1; i < k; i++ {
		wait *= 2
		if wait >= p.Cap {
			wait = p.Cap
			break
		}
	}
	if wait > p.Cap {
		wait = p.Cap
	}
	if p.Jitter > 0 && rng != nil {
		wait += time.Duration(rng() * float64(p.Jitter))
	}
	return wait
}

// Sleeper abstracts interruptible sleeping so the gateway's retry timing is
// testable without real delays.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// realSleeper sleeps on a timer
type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// defaultRNG returns jitter fractions from the global source
func defaultRNG() float64 {
	return rand.Float64()
}
