package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gabapcia/rpcwatch/internal/pkg/logger"
	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/rpcwatch/internal/pkg/resilience/timeout"
	"github.com/gabapcia/rpcwatch/internal/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// callFunc performs one raw attempt of a request.
type callFunc func(ctx context.Context, method string, params []any) (json.RawMessage, error)

// pipeline runs calls through retry and timeout and records telemetry.
type pipeline struct {
	cfg   Config
	retry retry.Retry
	call  callFunc

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// newPipeline builds the retry+timeout pipeline around call. When
// retryInCall is set the call retries on its own and the pipeline makes a
// single attempt.
func newPipeline(cfg Config, call callFunc, retryInCall bool) *pipeline {
	attempts := cfg.RetryCount + 1
	if retryInCall {
		attempts = 1
	}

	p := &pipeline{
		cfg:  cfg,
		call: call,
		retry: retry.New(
			retry.WithAttempts(attempts),
			retry.WithDelay(cfg.RetryDelay),
			retry.WithShouldRetry(func(attempt uint, err error) bool {
				ok := IsTransportError(err)
				if ok {
					logger.Debug(context.Background(), "rpc attempt failed",
						"transport", cfg.Key,
						"attempt", attempt+1,
						"error", err,
					)
				}
				return ok
			}),
		),
	}

	meter := telemetry.Meter()
	p.requests, _ = meter.Int64Counter("rpc.requests",
		metric.WithDescription("JSON-RPC requests sent, by outcome"),
	)
	p.duration, _ = meter.Float64Histogram("rpc.request.duration",
		metric.WithDescription("JSON-RPC request duration including retries"),
		metric.WithUnit("s"),
	)

	return p
}

func (p *pipeline) request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "rpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("rpcwatch.transport", string(p.cfg.Type)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := timeout.Do(ctx, method, p.cfg.Timeout, func(ctx context.Context) (json.RawMessage, error) {
		return retry.Do(ctx, p.retry, func() (json.RawMessage, error) {
			return p.call(ctx, method, params)
		})
	})

	outcome := outcomeOf(err)
	attrs := metric.WithAttributes(
		attribute.String("transport", string(p.cfg.Type)),
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	p.requests.Add(ctx, 1, attrs)
	p.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	return result, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case timeout.IsTimeout(err):
		return "timeout"
	case IsTransportError(err):
		return "transport_error"
	default:
		return "error"
	}
}
