// Package retry provides a configurable retry mechanism for operations that may fail temporarily.
// It wraps the retry-go package from Avast and exposes a simple interface with functional
// options for customizing retry behavior.
//
// The default delay between attempts is an exponential backoff with randomized jitter:
//
//	delay = floor((random() + 0.5) * 2^attempt) * baseDelay
//
// where attempt is the zero-based index of the retry being scheduled.
//
// Basic usage:
//
//	r := retry.New()
//	err := r.Execute(ctx, func() error {
//	    return someOperation()
//	})
//
// With a predicate and a custom delay:
//
//	r := retry.New(
//	    retry.WithAttempts(4),
//	    retry.WithDelay(150*time.Millisecond),
//	    retry.WithShouldRetry(func(attempt uint, err error) bool {
//	        return isTransient(err)
//	    }),
//	)
package retry

import (
	"context"
	"math/rand/v2"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Retry defines the interface for retry operations.
// Implementations of this interface provide a mechanism to execute operations
// with automatic retry logic in case of failures.
type Retry interface {
	// Execute runs the given function with configured retry logic.
	// It will retry the operation according to the configured parameters
	// if it returns an error accepted by the retry predicate.
	//
	// The context allows for cancellation. If the context is canceled while
	// waiting between attempts, Execute stops retrying and returns the context error.
	//
	// Execute returns nil if the operation succeeds within the configured
	// number of attempts, or the last error otherwise.
	Execute(ctx context.Context, operation func() error) error
}

// DelayFunc computes the wait before the retry with the given zero-based index.
type DelayFunc func(attempt uint, err error) time.Duration

// ShouldRetryFunc decides whether the failure of the given zero-based attempt
// should be retried.
type ShouldRetryFunc func(attempt uint, err error) bool

// config holds internal settings for the retry mechanism.
type config struct {
	attempts    uint            // maximum number of attempts, including the first one
	delay       time.Duration   // base delay fed to the backoff formula
	delayFunc   DelayFunc       // overrides the default jittered backoff when set
	shouldRetry ShouldRetryFunc // retry predicate; nil retries every error
	lastErrOnly bool            // whether to return only the last error
}

// Option defines a functional option for configuring the retry mechanism.
// Options are applied in the order they are provided to New().
type Option func(*config)

// retrier implements the Retry interface using the retry-go package.
type retrier struct {
	cfg config
}

// Compile-time assertion that retrier implements Retry interface
var _ Retry = (*retrier)(nil)

// New creates and returns a Retry implementation configured with
// the provided options. If no options are given, default values are used.
//
// Default configuration:
//   - attempts:    3 (1 initial attempt + 2 retries)
//   - delay:       150 milliseconds (base of the jittered exponential backoff)
//   - shouldRetry: every error is retried
//   - lastErrOnly: true (only the last error is returned)
func New(opts ...Option) Retry {
	cfg := config{
		attempts:    3,
		delay:       150 * time.Millisecond,
		lastErrOnly: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.attempts == 0 {
		// retry-go treats zero attempts as "retry forever".
		cfg.attempts = 1
	}

	return &retrier{
		cfg: cfg,
	}
}

// JitterBackoff returns floor((random()+0.5) * 2^attempt) * base.
func JitterBackoff(attempt uint, base time.Duration) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	factor := int64((rand.Float64() + 0.5) * float64(int64(1)<<attempt))
	return time.Duration(factor) * base
}

// Execute implements the Retry interface.
//
// The operation is first attempted immediately. If it fails and the retry
// predicate accepts the error, it is retried after the configured delay, up to
// the configured number of attempts.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	var attempt uint

	options := []retry.Option{
		retry.Attempts(r.cfg.attempts),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			// retry-go counts retries from 1 here.
			if n > 0 {
				n--
			}
			if r.cfg.delayFunc != nil {
				return r.cfg.delayFunc(n, err)
			}
			return JitterBackoff(n, r.cfg.delay)
		}),
		retry.RetryIf(func(err error) bool {
			if r.cfg.shouldRetry == nil {
				return true
			}
			return r.cfg.shouldRetry(attempt, err)
		}),
		retry.OnRetry(func(n uint, _ error) {
			attempt = n + 1
		}),
		retry.LastErrorOnly(r.cfg.lastErrOnly),
		retry.Context(ctx),
	}

	return retry.Do(operation, options...)
}

// Do runs op through r and returns the value produced by the successful attempt.
func Do[T any](ctx context.Context, r Retry, op func() (T, error)) (T, error) {
	var result T
	err := r.Execute(ctx, func() error {
		v, err := op()
		if err != nil {
			return err
		}

		result = v
		return nil
	})
	return result, err
}

// WithAttempts sets the maximum number of attempts (including the initial attempt).
// Default: 3 (1 initial attempt + 2 retries). Zero is treated as one attempt.
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the base delay of the jittered exponential backoff.
// Default: 150 milliseconds.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithDelayFunc replaces the jittered exponential backoff with f.
func WithDelayFunc(f DelayFunc) Option {
	return func(c *config) {
		c.delayFunc = f
	}
}

// WithShouldRetry sets the predicate deciding whether a failed attempt is retried.
// Errors rejected by the predicate are returned immediately.
func WithShouldRetry(f ShouldRetryFunc) Option {
	return func(c *config) {
		c.shouldRetry = f
	}
}

// WithLastErrorOnly sets whether to return only the last error.
// When false, all errors from all attempts are combined.
// Default: true.
func WithLastErrorOnly(b bool) Option {
	return func(c *config) {
		c.lastErrOnly = b
	}
}
