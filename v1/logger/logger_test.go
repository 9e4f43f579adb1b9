package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger(tracing bool) (*LoggerClient, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromZap(zap.New(core), tracing), logs
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelOf(Debug))
	assert.Equal(t, zapcore.InfoLevel, levelOf(Info))
	assert.Equal(t, zapcore.WarnLevel, levelOf(Warning))
	assert.Equal(t, zapcore.ErrorLevel, levelOf(Error))
	assert.Equal(t, zapcore.InfoLevel, levelOf("verbose"))
}

func TestFieldsAndError(t *testing.T) {
	log, logs := newObservedLogger(false)

	log.Warn("registry unavailable", errors.New("connection refused"), map[string]interface{}{
		"subject": "orders-value",
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "registry unavailable", entry.Message)

	ctx := entry.ContextMap()
	assert.Equal(t, "orders-value", ctx["subject"])
	assert.Equal(t, "connection refused", ctx["error"])
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	t.Run("tracing enabled", func(t *testing.T) {
		log, logs := newObservedLogger(true)
		log.InfoWithContext(ctx, "decoded", nil)

		fields := logs.All()[0].ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	})

	t.Run("tracing disabled", func(t *testing.T) {
		log, logs := newObservedLogger(false)
		log.InfoWithContext(ctx, "decoded", nil)

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "trace_id")
	})

	t.Run("no span in context", func(t *testing.T) {
		log, logs := newObservedLogger(true)
		log.ErrorWithContext(context.Background(), "decode failed", errors.New("boom"))

		fields := logs.All()[0].ContextMap()
		assert.NotContains(t, fields, "trace_id")
		assert.Equal(t, "boom", fields["error"])
	})
}

func TestBuildZap(t *testing.T) {
	z, err := buildZap(Config{Level: Debug}, "stdout")
	require.NoError(t, err)
	assert.True(t, z.Core().Enabled(zapcore.DebugLevel))
}
