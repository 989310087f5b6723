// Package poll runs a callback on a fixed interval until stopped.
//
// Invocations never overlap: the wait before the next run starts only after
// the previous run returned. Stopping prevents future runs but does not
// interrupt one in progress.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 4 * time.Second

// StopFunc stops a poll loop. It is safe to call more than once and from
// inside the callback.
type StopFunc func()

// Callback is invoked on every tick. stop ends the loop after the current run.
type Callback func(ctx context.Context, stop StopFunc)

// config holds the settings of one poll loop.
type config struct {
	interval        time.Duration
	emitOnBegin     bool
	initialWait     time.Duration
	initialWaitFunc func(ctx context.Context) (time.Duration, error)
}

// Option configures Poll.
type Option func(*config)

// WithInterval sets the delay between runs.
func WithInterval(d time.Duration) Option {
	return func(c *config) {
		c.interval = d
	}
}

// WithEmitOnBegin runs the callback once immediately, before the first wait.
func WithEmitOnBegin(b bool) Option {
	return func(c *config) {
		c.emitOnBegin = b
	}
}

// WithInitialWaitTime replaces the delay before the first scheduled run.
// Later waits use the interval.
func WithInitialWaitTime(d time.Duration) Option {
	return func(c *config) {
		c.initialWait = d
	}
}

// WithInitialWaitTimeFunc computes the delay before the first scheduled run.
// If f fails the interval is used.
func WithInitialWaitTimeFunc(f func(ctx context.Context) (time.Duration, error)) Option {
	return func(c *config) {
		c.initialWaitFunc = f
	}
}

// Poll starts calling callback in a new goroutine and returns a function that
// stops it. The loop also ends when ctx is done; callback receives ctx as is.
func Poll(ctx context.Context, callback Callback, opts ...Option) StopFunc {
	cfg := config{interval: DefaultInterval, initialWait: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.interval <= 0 {
		cfg.interval = DefaultInterval
	}

	done := make(chan struct{})
	var once sync.Once
	stop := StopFunc(func() {
		once.Do(func() { close(done) })
	})

	stopped := func() bool {
		select {
		case <-done:
			return true
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	go func() {
		if cfg.emitOnBegin {
			if stopped() {
				return
			}
			callback(ctx, stop)
		}

		wait := initialWait(ctx, cfg)

		timer := time.NewTimer(wait)
		defer timer.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			// done may have been closed while the timer fired
			if stopped() {
				return
			}

			callback(ctx, stop)
			timer.Reset(cfg.interval)
		}
	}()

	return stop
}

func initialWait(ctx context.Context, cfg config) time.Duration {
	if cfg.initialWaitFunc != nil {
		d, err := cfg.initialWaitFunc(ctx)
		if err != nil {
			logger.Warn(ctx, "computing initial wait failed, using interval", "error", err)
			return cfg.interval
		}
		return max(d, 0)
	}

	if cfg.initialWait >= 0 {
		return cfg.initialWait
	}

	return cfg.interval
}
