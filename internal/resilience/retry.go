// Package resilience provides the retry and circuit-breaker primitives
// the semantic-index write queue and other unreliable external calls
// share, generalized from the delivery substrate's NATS reconnect policy.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy is an exponential-backoff-with-jitter retry loop bounded
// by a maximum attempt count and an IsRetryable predicate.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      float64
	IsRetryable func(error) bool
}

// DefaultRetryPolicy makes up to 3 attempts in total with a 200ms base
// delay, per spec's vector-index write-queue description. Its IsRetryable
// accepts every error, so no error kind ends the retries early.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		Jitter:      0.2,
		IsRetryable: func(err error) bool { return true },
	}
}

// errAborted wraps an error the policy decided not to retry, so
// callers can distinguish "gave up after N attempts" from "aborted early".
var errAborted = errors.New("resilience: aborted on non-retryable error")

// Do runs fn up to MaxAttempts times, sleeping an exponentially growing,
// jittered delay between attempts, stopping early if IsRetryable(err)
// returns false or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.IsRetryable != nil && !p.IsRetryable(lastErr) {
			return errors.Join(errAborted, lastErr)
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.backoff(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	scaled := base * time.Duration(1<<uint(attempt))

	if p.Jitter <= 0 {
		return scaled
	}
	jitterRange := float64(scaled) * p.Jitter
	offset := (rand.Float64()*2 - 1) * jitterRange
	return scaled + time.Duration(offset)
}
