// Package timeout races an operation against a deadline. On expiry the
// operation's context is canceled and a *Error is returned, so callers can
// tell a slow endpoint apart from a broken one.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the sentinel matched by every timeout produced by this package.
var ErrTimeout = errors.New("operation timed out")

// Error describes an operation that exceeded its bound.
type Error struct {
	Op    string        // short description of the guarded operation
	Bound time.Duration // configured deadline
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s after %s", ErrTimeout, e.Bound)
	}
	return fmt.Sprintf("%s: %s after %s", e.Op, ErrTimeout, e.Bound)
}

func (e *Error) Unwrap() error {
	return ErrTimeout
}

// Do runs op under a deadline of d. A non-positive d disables the bound and
// op runs with the caller's context unchanged.
//
// When the deadline fires first, op's context is canceled and Do returns
// immediately with a *Error; op keeps running in the background until it
// observes the cancellation. Cancellation of the parent context is reported
// as the parent's error, not as a timeout.
func Do[T any](ctx context.Context, op string, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, &Error{Op: op, Bound: d}
		}
		return r.value, r.err
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return zero, err
		}
		return zero, &Error{Op: op, Bound: d}
	}
}

// IsTimeout reports whether err is a timeout produced by this package.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
