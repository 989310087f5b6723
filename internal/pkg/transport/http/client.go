// Package http provides a configurable HTTP client with retry logic for
// JSON-RPC providers. It wraps the retryablehttp.Client from HashiCorp and
// installs a retry policy suited to rate-limited RPC endpoints:
//
//   - connection errors, 5xx, 408, 413 and 429 responses are retried;
//   - a numeric Retry-After header (seconds) overrides the computed backoff;
//   - otherwise the wait is floor((random()+0.5) * 2^attempt) * retryDelay.
package http

import (
	"context"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/retry"

	"github.com/hashicorp/go-retryablehttp"
)

// retryableStatuses lists the non-5xx statuses worth retrying.
var retryableStatuses = []int{
	http.StatusRequestTimeout,
	http.StatusRequestEntityTooLarge,
	http.StatusTooManyRequests,
}

var hasDigit = regexp.MustCompile(`\d`)

// config holds internal settings for the HTTP client.
type config struct {
	timeout    time.Duration // maximum duration for a single HTTP attempt (0 = unbounded)
	retryDelay time.Duration // base delay of the jittered exponential backoff
	retryMax   int           // maximum number of retry attempts
}

// Option defines a functional option for configuring the HTTP client.
type Option func(*config)

// NewClient creates and returns a retryablehttp.Client configured with
// the provided options. If no options are given, default values are used:
//
//   - timeout:    0 (a single attempt is bounded only by the request context)
//   - retryDelay: 150 milliseconds
//   - retryMax:   3 retries
//
// Responses that exhaust their retries are handed back to the caller so the
// final status can be inspected.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:    0,
		retryDelay: 150 * time.Millisecond,
		retryMax:   3,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = cfg.timeout
	client.RetryWaitMin = cfg.retryDelay
	client.RetryWaitMax = cfg.retryDelay
	client.RetryMax = cfg.retryMax
	client.CheckRetry = CheckRetry
	client.Backoff = Backoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Debug(req.Context(), "retrying rpc request", "http.url", req.URL.String(), "http.attempt", attempt)
		}
	}
	return client
}

// CheckRetry retries connection errors, any 5xx status, and 408, 413 and 429.
// Context cancellation is never retried.
func CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return true, nil
	}

	return slices.Contains(retryableStatuses, resp.StatusCode), nil
}

// Backoff honors a numeric Retry-After header (seconds) when present and
// otherwise falls back to the jittered exponential backoff based on min.
// max is ignored: the server-supplied delay is never clipped.
func Backoff(min, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if d, ok := RetryAfter(resp); ok {
		return d
	}

	return retry.JitterBackoff(uint(attemptNum), min)
}

// RetryAfter extracts the Retry-After header as a duration. Only the
// delay-seconds form is understood.
func RetryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}

	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if !hasDigit.MatchString(value) {
		return 0, false
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0, false
	}

	return time.Duration(seconds) * 1000 * time.Millisecond, true
}

// WithTimeout sets the maximum duration allowed for a single HTTP attempt.
// Default: 0 (unbounded).
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRetryDelay sets the base delay of the exponential backoff.
// Default: 150 milliseconds.
func WithRetryDelay(d time.Duration) Option {
	return func(c *config) {
		c.retryDelay = d
	}
}

// WithRetryMax sets the maximum number of retry attempts for failed requests.
// Default: 3 retries.
func WithRetryMax(n int) Option {
	return func(c *config) {
		c.retryMax = n
	}
}
