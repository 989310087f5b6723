package logger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// resetLogger resets the global logger state for testing
func resetLogger() {
	baseLogger = zap.NewNop().Sugar()
	initBaseLoggerOnce = sync.Once{}
}

// observeLogger swaps the global logger for an in-memory one.
func observeLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	baseLogger = zap.New(core).Sugar()
	t.Cleanup(resetLogger)
	return logs
}

func TestInit(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run("successful initialization with "+level+" level", func(t *testing.T) {
			resetLogger()
			defer resetLogger()

			err := Init(WithLevel(level))
			require.NoError(t, err)
			assert.NotNil(t, baseLogger)
			assert.True(t, baseLogger.Desugar().Core().Enabled(zapcore.ErrorLevel))
		})
	}

	t.Run("error with invalid level", func(t *testing.T) {
		resetLogger()
		defer resetLogger()

		err := Init(WithLevel("invalid"))
		assert.Error(t, err)
	})

	t.Run("init only once", func(t *testing.T) {
		resetLogger()
		defer resetLogger()

		require.NoError(t, Init(WithLevel("debug")))
		firstLogger := baseLogger

		require.NoError(t, Init(WithLevel("error")))
		assert.Same(t, firstLogger, baseLogger, "Init() should only initialize once")
	})
}

func TestNoopBeforeInit(t *testing.T) {
	resetLogger()

	assert.NotPanics(t, func() {
		Debug(t.Context(), "debug")
		Info(t.Context(), "info")
		Warn(t.Context(), "warn")
		Error(t.Context(), "error")
		_ = Sync()
	})
}

func TestDeriveFromCtx(t *testing.T) {
	t.Run("adds trace and span ids when a span is present", func(t *testing.T) {
		logs := observeLogger(t)

		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(t.Context(), spanCtx)

		Info(ctx, "with span", "key", "value")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
		assert.Equal(t, "value", fields["key"])
	})

	t.Run("leaves records untouched without a span", func(t *testing.T) {
		logs := observeLogger(t)

		Warn(t.Context(), "no span")
		Error(context.Background(), "still no span")

		entries := logs.All()
		require.Len(t, entries, 2)
		assert.NotContains(t, entries[0].ContextMap(), "trace_id")
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	})
}
