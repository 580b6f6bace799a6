// Package resilience provides retry and circuit breaker primitives used at
// every network boundary of the pipeline.
package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy configures bounded retry with exponential backoff. RetryIf
// decides whether a given error is worth another attempt; a nil RetryIf
// retries everything.
type RetryPolicy struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
	RetryIf     func(error) bool
}

// DefaultRetry matches the pipeline-wide policy: 3 attempts total,
// exponential backoff starting at 2s, capped at 10s.
var DefaultRetry = RetryPolicy{
	MaxAttempts: 3,
	InitialWait: 2 * time.Second,
	MaxWait:     10 * time.Second,
	Jitter:      true,
}

// Do runs f up to MaxAttempts times. Non-retryable errors propagate
// immediately; context cancellation aborts the backoff sleep.
func (p RetryPolicy) Do(ctx context.Context, f func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	wait := p.InitialWait

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = f(ctx)
		if err == nil {
			return nil
		}
		if p.RetryIf != nil && !p.RetryIf(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		sleep := wait
		if p.Jitter {
			sleep = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if p.MaxWait > 0 && sleep > p.MaxWait {
			sleep = p.MaxWait
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		wait *= 2
		if p.MaxWait > 0 && wait > p.MaxWait {
			wait = p.MaxWait
		}
	}
	return err
}

// DoValue is a generic variant of Do for operations that return a value.
func DoValue[T any](ctx context.Context, p RetryPolicy, f func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		var ferr error
		out, ferr = f(ctx)
		return ferr
	})
	return out, err
}
