package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "op")
	defer span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetTraceParent(ctx))
}

func TestSetup(t *testing.T) {
	t.Cleanup(func() { SetTracer(nil) })

	shutdown, err := Setup(context.Background(), Config{ServiceName: "test", Exporter: "none"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "op")
	defer span.End()

	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, 32)
	assert.Equal(t, "00-"+traceID+"-"+span.SpanContext().SpanID().String()+"-01", GetTraceParent(ctx))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{Exporter: "jaeger"})

	assert.Error(t, err)
}
