// Package retry wraps fallible operations with exponential backoff and
// jitter, bounded by an attempt count and a delay ceiling. It is orthogonal
// to and composable with the circuit breaker; which wraps which decides
// whether retries count toward the breaker's failure threshold.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Options bound the retry schedule. The delay before attempt n is
// min(MinTimeout * Factor^(n-1), MaxTimeout) with up to 10% random jitter so
// concurrent callers don't retry in lockstep.
type Options struct {
	Retries    int           // additional attempts after the first
	Factor     float64       // delay growth factor between attempts
	MinTimeout time.Duration // delay before the first retry
	MaxTimeout time.Duration // delay ceiling
}

// DefaultOptions matches the receipt scorer's needs: 2 retries starting at
// 250ms, doubling, capped at 2s.
func DefaultOptions() Options {
	return Options{
		Retries:    2,
		Factor:     2,
		MinTimeout: 250 * time.Millisecond,
		MaxTimeout: 2 * time.Second,
	}
}

const jitterFraction = 0.1

// Do runs op until it succeeds, the retry budget is exhausted, or ctx is
// cancelled. After the final attempt the last error propagates unmodified.
func Do(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	return backoff.Retry(func() error {
		return op(ctx)
	}, schedule(ctx, opts))
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		return op(ctx)
	}, schedule(ctx, opts))
}

// Permanent marks an error as not worth retrying; Do and DoValue return it
// immediately. Used for circuit-open rejections, where retrying within the
// recovery window can never succeed.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func schedule(ctx context.Context, opts Options) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.MinTimeout
	b.Multiplier = opts.Factor
	b.MaxInterval = opts.MaxTimeout
	b.RandomizationFactor = jitterFraction
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock
	b.Reset()

	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
