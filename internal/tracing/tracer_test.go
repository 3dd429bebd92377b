package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigure_InstallsProviderAndShutsDownCleanly(t *testing.T) {
	shutdown := Configure()
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(t.Context()))
}

func TestStartStage_SpanCarriesVariantAndStageAttributes(t *testing.T) {
	defer Configure()(t.Context())

	start := time.Now()
	ctx, span := StartStage(context.Background(), "rag", "retrieve", start)
	require.NotNil(t, ctx)
	require.True(t, span.IsRecording())
	End(span, nil, 5, start.Add(10*time.Millisecond))
	assert.False(t, span.IsRecording())

	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	assert.Contains(t, ro.Attributes(), attribute.String("pipeline.variant", "rag"))
	assert.Contains(t, ro.Attributes(), attribute.String("pipeline.stage", "retrieve"))
}

func TestEnd_RecordsErrorOnStageFailure(t *testing.T) {
	defer Configure()(t.Context())

	start := time.Now()
	_, span := StartStage(context.Background(), "rag", "rerank", start)
	End(span, errors.New("rerank unavailable"), 0, start.Add(time.Millisecond))
	assert.False(t, span.IsRecording())

	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	assert.Equal(t, codes.Error, ro.Status().Code)
}
