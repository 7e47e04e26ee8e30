package errors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls how persistence calls are repeated.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait after the first failure.
	InitialBackoff time.Duration

	// MaxBackoff caps every wait. Zero means no cap.
	MaxBackoff time.Duration

	// BackoffFactor multiplies the wait after each failure.
	BackoffFactor float64

	// Jitter spreads each wait by up to +/- this fraction.
	Jitter float64

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool
}

// LoadRetry is used for graph loads, which are idempotent.
var LoadRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry makes a single attempt. Pass it to remote.WithRetry to turn
// load retries off.
var NoRetry = RetryConfig{MaxAttempts: 1}

// Backoff returns the wait before attempt n+1, where n >= 1 is the number
// of failed attempts so far, without jitter.
func (c RetryConfig) Backoff(n int) time.Duration {
	if n < 1 || c.InitialBackoff <= 0 {
		return 0
	}
	factor := c.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	d := float64(c.InitialBackoff) * math.Pow(factor, float64(n-1))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		return c.MaxBackoff
	}
	return time.Duration(d)
}

func (c RetryConfig) attempts() int {
	return max(c.MaxAttempts, 1)
}

func (c RetryConfig) retryable(err error) bool {
	if c.RetryableFunc != nil {
		return c.RetryableFunc(err)
	}
	return IsRetryable(err)
}

// RetryResult is the outcome of WithRetryContext.
type RetryResult[T any] struct {
	Value    T
	Err      error
	Attempts int
	Duration time.Duration
}

// WithRetryContext calls fn until it succeeds, fails with an error cfg
// does not retry, runs out of attempts or ctx is done. A returned error is
// always a *CategorizedError.
func WithRetryContext[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) RetryResult[T] {
	start := time.Now()
	var res RetryResult[T]
	fail := func(err error, category Category, note string) RetryResult[T] {
		res.Err = &CategorizedError{Err: err, Category: category, Retries: res.Attempts, Context: note}
		res.Duration = time.Since(start)
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(err, CategoryPersistence, "context cancelled")
		}

		res.Attempts++
		value, err := fn(ctx)
		if err == nil {
			res.Value = value
			res.Duration = time.Since(start)
			return res
		}
		switch {
		case !cfg.retryable(err):
			return fail(err, Categorize(err), "")
		case res.Attempts >= cfg.attempts():
			return fail(err, Categorize(err), "max retries exceeded")
		}

		wait := time.NewTimer(jittered(cfg.Backoff(res.Attempts), cfg.Jitter))
		select {
		case <-ctx.Done():
			wait.Stop()
			return fail(ctx.Err(), CategoryPersistence, "context cancelled during backoff")
		case <-wait.C:
		}
	}
}

func jittered(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || base <= 0 {
		return base
	}
	spread := float64(base) * jitter * (2*rand.Float64() - 1)
	return base + time.Duration(spread)
}
