package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func newRecordingTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, recorder
}

func TestStartServiceSpanNaming(t *testing.T) {
	provider, recorder := newRecordingTracer(t)
	tracer := provider.Tracer(TracerName)

	_, span := tracer.Start(context.Background(), "transfer.execute")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "transfer.execute", spans[0].Name())
}

func TestSetAttributesAndRecordError(t *testing.T) {
	provider, recorder := newRecordingTracer(t)
	tracer := provider.Tracer(TracerName)

	_, span := tracer.Start(context.Background(), "transfer.execute")
	SetAttributes(span,
		SpanAttrFromAccount, "08112345678",
		SpanAttrBankCode, "081",
		SpanAttrAmount, "10000",
	)
	RecordError(span, errors.New("deposit declined"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs := spans[0].Attributes()
	found := map[string]string{}
	for _, kv := range attrs {
		found[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "08112345678", found[SpanAttrFromAccount])
	assert.Equal(t, "081", found[SpanAttrBankCode])

	events := spans[0].Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "exception", events[0].Name)
}

func TestSetAttributesNilSpan(t *testing.T) {
	// Must not panic
	SetAttributes(nil, "k", "v")
	SetAttribute(nil, "k", "v")
	RecordError(nil, errors.New("x"))
	AddEvent(nil, "e")
	SetOK(nil)
}

func TestDisabledProviderIsNoop(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NotNil(t, tp.Tracer("test"))
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))

	provider, _ := newRecordingTracer(t)
	ctx, span := provider.Tracer(TracerName).Start(context.Background(), "op")
	defer span.End()
	assert.NotEmpty(t, GetTraceID(ctx))
}
