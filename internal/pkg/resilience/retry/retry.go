// Package retry provides a configurable retry mechanism for operations that may
// fail temporarily. It wraps avast/retry-go and exposes a small interface with
// functional options.
//
// Delays grow exponentially from the base delay up to the max delay. Errors
// for which the configured predicate returns false stop the loop immediately.
//
//	r := retry.New(
//	    retry.WithAttempts(5),
//	    retry.WithDelay(200*time.Millisecond),
//	    retry.WithRetryIf(func(err error) bool { return !errors.Is(err, ErrPermanent) }),
//	)
//	err := r.Execute(ctx, func() error { return fetch(ctx) })
package retry

import (
	"context"
	"time"

	"github.com/gabapcia/txconfirm/internal/pkg/logger"

	retry "github.com/avast/retry-go/v4"
)

// Retry executes operations with automatic retry logic.
type Retry interface {
	// Execute runs operation until it succeeds, the attempt budget is spent,
	// the predicate rejects the error, or ctx is done.
	//
	// The operation must be idempotent. Execute returns nil on success,
	// otherwise the last error (or every error, see WithLastErrorOnly).
	Execute(ctx context.Context, operation func() error) error
}

// config holds internal settings for the retry mechanism.
type config struct {
	attempts    uint             // maximum number of attempts, including the first
	delay       time.Duration    // base delay between attempts
	maxDelay    time.Duration    // cap on the delay between attempts
	lastErrOnly bool             // whether to return only the last error
	retryIf     func(error) bool // whether an error is worth another attempt
	name        string           // operation name used in retry logs
}

// Option configures the retry mechanism. Options are applied in order.
type Option func(*config)

// retrier implements Retry using retry-go.
type retrier struct {
	cfg config
}

var _ Retry = (*retrier)(nil)

// New returns a Retry configured with opts.
//
// Defaults:
//   - attempts:    3
//   - delay:       1 second
//   - maxDelay:    5 seconds
//   - lastErrOnly: true
//   - retryIf:     every error is retried
func New(opts ...Option) Retry {
	cfg := config{
		attempts:    3,
		delay:       1 * time.Second,
		maxDelay:    5 * time.Second,
		lastErrOnly: true,
		retryIf:     retry.IsRecoverable,
		name:        "operation",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{
		cfg: cfg,
	}
}

// Execute implements Retry. The first attempt runs immediately.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	options := []retry.Option{
		retry.Attempts(r.cfg.attempts),
		retry.Delay(r.cfg.delay),
		retry.MaxDelay(r.cfg.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(r.cfg.lastErrOnly),
		retry.RetryIf(r.cfg.retryIf),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug(ctx, "retrying after failure",
				"retry.operation", r.cfg.name,
				"retry.attempt", n+1,
				"error", err,
			)
		}),
	}

	return retry.Do(operation, options...)
}

// WithAttempts sets the maximum number of attempts, including the first one.
// Default: 3.
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay between attempts. Default: 1 second.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay caps the exponential growth of the delay. Default: 5 seconds.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithLastErrorOnly sets whether only the error of the final attempt is
// returned. When false every attempt's error is combined. Default: true.
func WithLastErrorOnly(b bool) Option {
	return func(c *config) {
		c.lastErrOnly = b
	}
}

// WithRetryIf sets the predicate deciding whether an error deserves another
// attempt. Errors for which it returns false are returned immediately.
func WithRetryIf(f func(error) bool) Option {
	return func(c *config) {
		c.retryIf = f
	}
}

// WithName labels the operation in retry logs.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}
