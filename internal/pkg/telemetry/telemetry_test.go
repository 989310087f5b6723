package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func serviceName(t *testing.T, attrs []attribute.KeyValue) string {
	t.Helper()

	for _, attr := range attrs {
		if attr.Key == semconv.ServiceNameKey {
			return attr.Value.AsString()
		}
	}

	t.Fatal("service name attribute not found in resource")
	return ""
}

func TestNewResource(t *testing.T) {
	for _, name := range []string{"rpcwatch", "rpcwatch-mainnet_2"} {
		t.Run(name, func(t *testing.T) {
			res, err := newResource(name)
			require.NoError(t, err)

			assert.Equal(t, name, serviceName(t, res.Attributes()))
		})
	}

	t.Run("empty service name", func(t *testing.T) {
		res, err := newResource("")
		require.NoError(t, err)
		assert.NotNil(t, res)
	})
}

// The OTLP exporters connect lazily, so building providers succeeds without a
// collector. Shutdown may fail to flush, which is not asserted.
func TestInitProviders(t *testing.T) {
	originalMeterProvider := otel.GetMeterProvider()
	originalTracerProvider := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(originalMeterProvider)
		otel.SetTracerProvider(originalTracerProvider)
	})

	res, err := newResource("rpcwatch")
	require.NoError(t, err)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	t.Run("meter provider", func(t *testing.T) {
		mp, err := initMeterProvider(t.Context(), res)
		if err != nil {
			t.Logf("initMeterProvider() failed: %v", err)
			return
		}
		assert.Equal(t, mp, otel.GetMeterProvider())
		_ = mp.Shutdown(shutdownCtx)
	})

	t.Run("tracer provider", func(t *testing.T) {
		tp, err := initTracerProvider(t.Context(), res)
		if err != nil {
			t.Logf("initTracerProvider() failed: %v", err)
			return
		}
		assert.Equal(t, tp, otel.GetTracerProvider())
		_ = tp.Shutdown(shutdownCtx)
	})
}

func TestInitLoggerProvider(t *testing.T) {
	t.Cleanup(func() {
		loggerProviderMu.Lock()
		loggerProvider = nil
		loggerProviderMu.Unlock()
	})

	res, err := newResource("test-service")
	require.NoError(t, err)

	lp, err := initLoggerProvider(context.Background(), res)
	if err != nil {
		t.Logf("initLoggerProvider() failed as expected: %v", err)
		return
	}

	assert.NotNil(t, lp)
	assert.Equal(t, lp, LoggerProvider(), "the provider must be exposed to the logger package")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = lp.Shutdown(shutdownCtx)
}

func TestLoggerProvider(t *testing.T) {
	t.Run("nil before initialization", func(t *testing.T) {
		loggerProviderMu.Lock()
		loggerProvider = nil
		loggerProviderMu.Unlock()

		assert.Nil(t, LoggerProvider())
	})
}

func TestInstruments(t *testing.T) {
	t.Run("meter and tracer are usable without an SDK", func(t *testing.T) {
		counter, err := Meter().Int64Counter("test.counter")
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			counter.Add(context.Background(), 1)
			_, span := Tracer().Start(context.Background(), "test")
			span.End()
		})
	})
}

func TestInit(t *testing.T) {
	originalMeterProvider := otel.GetMeterProvider()
	originalTracerProvider := otel.GetTracerProvider()
	defer func() {
		otel.SetMeterProvider(originalMeterProvider)
		otel.SetTracerProvider(originalTracerProvider)
		loggerProviderMu.Lock()
		loggerProvider = nil
		loggerProviderMu.Unlock()
	}()

	shutdownFunc, err := Init(context.Background(), "test-service")
	if err != nil {
		// Expected to fail without OTLP endpoint configured
		t.Logf("Init() failed as expected: %v", err)
		return
	}

	assert.NotNil(t, shutdownFunc, "Init() returned nil shutdown function")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := shutdownFunc(shutdownCtx); err != nil {
		// Timeout errors are expected when OTLP endpoint is not available
		t.Logf("ShutdownFunc() returned error (expected): %v", err)
	}
}
