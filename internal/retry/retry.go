// Package retry runs remote calls with a per-attempt timeout and bounded exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Defaults for remote dependency calls.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultMaxRetries      = 2
	DefaultInitialInterval = 200 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
)

// Policy bounds one remote call.
type Policy struct {
	// Timeout applies to each attempt separately. Zero disables it.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

// Permanent marks err as not worth retrying. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, exhausts retries, or ctx ends.
// onRetry, when non-nil, is called before each wait.
func Do[T any](
	ctx context.Context,
	p Policy,
	op func(ctx context.Context) (T, error),
	onRetry func(err error, wait time.Duration),
) (T, error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	retries := max(p.MaxRetries, 0)

	attempt := func() (T, error) {
		actx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		return op(actx)
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(retries + 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if onRetry != nil {
		opts = append(opts, backoff.WithNotify(onRetry))
	}
	return backoff.Retry(ctx, attempt, opts...)
}
