package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAndFromContext(t *testing.T) {
	logger := zap.NewNop()
	ctx := WithContext(context.Background(), logger)
	assert.Equal(t, logger, FromContext(ctx))
}

func TestFromContextReturnsNopWhenMissing(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info("test")
}

func TestWithRequestID(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithRequestID(context.Background(), logger, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))

	enriched.Info("test message")
	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
}

func TestWithCorrelationRef(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx, enriched := WithCorrelationRef(context.Background(), logger, "TRF-abc")

	assert.Equal(t, "TRF-abc", GetCorrelationRef(ctx))

	enriched.Info("leg settled")
	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "TRF-abc", entries[0].ContextMap()["correlation_ref"])
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetCorrelationRef(context.Background()))
}

func TestWithTraceContextNoSpan(t *testing.T) {
	logger := zap.NewNop()
	result := WithTraceContext(context.Background(), logger)
	assert.Equal(t, logger, result)
}

func TestContextLogger(t *testing.T) {
	t.Run("L extracts logger from context", func(t *testing.T) {
		core, observed := observer.New(zapcore.InfoLevel)
		ctx := WithContext(context.Background(), zap.New(core))

		L(ctx).Info("hello", zap.String("k", "v"))

		entries := observed.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "hello", entries[0].Message)
		assert.Equal(t, "v", entries[0].ContextMap()["k"])
	})

	t.Run("enriches with request id and correlation ref", func(t *testing.T) {
		core, observed := observer.New(zapcore.InfoLevel)
		ctx := WithContext(context.Background(), zap.New(core))
		ctx = context.WithValue(ctx, RequestIDKey, "req-9")
		ctx = context.WithValue(ctx, CorrelationRefKey, "TRF-9")

		L(ctx).Warn("deposit declined")

		entries := observed.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-9", fields["request_id"])
		assert.Equal(t, "TRF-9", fields["correlation_ref"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		cl := &ContextLogger{ctx: context.Background()}
		cl.Info("safe")
	})

	t.Run("With adds fields", func(t *testing.T) {
		core, observed := observer.New(zapcore.InfoLevel)
		ctx := WithContext(context.Background(), zap.New(core))

		L(ctx).With(zap.String("bank_code", "081")).Info("routing")

		entries := observed.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "081", entries[0].ContextMap()["bank_code"])
	})
}

func TestWithLogger(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	cl := WithLogger(context.Background(), zap.New(core))
	cl.Error("gateway failure")
	require.Len(t, observed.All(), 1)
	assert.Equal(t, zapcore.ErrorLevel, observed.All()[0].Level)
}
