package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{
		ServiceName: "workhive-test",
		Enabled:     false,
	})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpanNoopSafety(t *testing.T) {
	span, ctx := NewSpan(context.Background(), "test.op")
	require.NotNil(t, ctx)

	span.AddAttributes(attribute.String("k", "v"))
	span.SetError(errors.New("boom"))
	span.SetError(nil)
	span.End()
}

func TestRecordErrorInContext(t *testing.T) {
	RecordErrorInContext(context.Background(), nil)
	RecordErrorInContext(context.Background(), errors.New("boom"))
}
