package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/motorbook/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = obscontext.WithActor(ctx, "admin")

	WithSequence(WithContext(ctx, base), "INVOICE", 2025).Info("allocated")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "admin", fields["actor"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "INVOICE", fields["sequence_key"])
	assert.Equal(t, int64(2025), fields["sequence_year"])
}

func TestWithContextWithoutCorrelation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithContext(context.Background(), base).Info("plain")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].Context)
}

func TestWithDocument(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	WithDocument(zap.New(core), "42", "QUOTE", "QUO-2025-00001").Info("issued")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "42", fields["document_id"])
	assert.Equal(t, "QUOTE", fields["document_type"])
	assert.Equal(t, "QUO-2025-00001", fields["document_number"])
	assert.Nil(t, WithDocument(nil, "1", "INVOICE", "x"))
}

func TestProductionConfigRejectsUnknownLevel(t *testing.T) {
	_, err := productionConfig(Config{Level: "chatty"})
	assert.Error(t, err)

	cfg, err := productionConfig(Config{Level: "warn", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
}
