package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "restatevm", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	require.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tracer = nil
	enabled = false

	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpanAndAttrHelpers(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartInvocationSpan(ctx, "inv-1", "dbg-1")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	SetAttributes(newCtx, InvocationID("inv-1"))
	AddEvent(newCtx, "replay-started")
	span.End()

	_, syscallSpan := StartSyscallSpan(ctx, "sys_sleep")
	require.NotNil(t, syscallSpan)
	syscallSpan.End()

	_, progressSpan := StartDoProgressSpan(ctx)
	require.NotNil(t, progressSpan)
	progressSpan.End()
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()
	RecordError(ctx, nil)
	RecordError(ctx, errors.New("boom"))
}
