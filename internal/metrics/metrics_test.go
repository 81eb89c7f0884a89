package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.RecordEntryAppended("InputCommand")
	m.RecordSuspension()
	m.RecordReplayMismatch()
	m.RecordDoProgressOutcome("AnyCompleted")
	m.ObserveInvocationDuration(time.Millisecond)
	m.IncActiveInvocations()
	m.DecActiveInvocations()
	m.ObserveSyscallDuration("sys_sleep", time.Microsecond)
}

func TestNewWhenDisabledReturnsNil(t *testing.T) {
	enabled = false
	registry = nil
	registryOnce = sync.Once{}
	require.Nil(t, New())
}

func TestNewWhenEnabledRegistersCollectors(t *testing.T) {
	enabled = false
	registry = nil
	registryOnce = sync.Once{}

	InitRegistry()
	m := New()
	require.NotNil(t, m)

	m.RecordEntryAppended("GetLazyStateCommand")
	m.RecordSuspension()
	m.RecordReplayMismatch()
	m.RecordDoProgressOutcome("Suspended")
	m.ObserveInvocationDuration(10 * time.Millisecond)
	m.IncActiveInvocations()
	m.DecActiveInvocations()
	m.ObserveSyscallDuration("sys_call", time.Millisecond)

	families, err := GetRegistry().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
