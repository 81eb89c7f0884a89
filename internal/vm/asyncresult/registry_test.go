package asyncresult

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySeedsCancelHandle(t *testing.T) {
	r := New()
	id, ok := r.LookupHandle(CancelHandle)
	require.True(t, ok)
	assert.Equal(t, SignalID(CancelSignalID), id)
}

func TestHandleUniqueness(t *testing.T) {
	r := New()
	h1 := r.CreateHandleMapping(CompletionID(1))
	h2 := r.CreateHandleMapping(CompletionID(2))
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, CancelHandle, h1)
	assert.NotEqual(t, CancelHandle, h2)
}

func TestProcessNextUntilAnyFound(t *testing.T) {
	r := New()
	h := r.CreateHandleMapping(CompletionID(5))

	r.Enqueue(Notification{ID: CompletionID(1), Result: "a"})
	r.Enqueue(Notification{ID: CompletionID(5), Result: "target"})
	r.Enqueue(Notification{ID: CompletionID(9), Result: "c"})

	targets := map[NotificationID]bool{CompletionID(5): true}
	found, ok := r.ProcessNextUntilAnyFound(targets)
	require.True(t, ok)
	assert.Equal(t, CompletionID(5), found)

	result, ready := r.CopyHandle(h)
	require.True(t, ready)
	assert.Equal(t, "target", result)

	// CompletionID(1) was drained into ready as a side effect, even though
	// it wasn't the target.
	_, ready = r.ready[CompletionID(1)]
	assert.True(t, ready)
}

func TestProcessNextUntilAnyFoundExhausted(t *testing.T) {
	r := New()
	r.Enqueue(Notification{ID: CompletionID(1), Result: "a"})

	_, ok := r.ProcessNextUntilAnyFound(map[NotificationID]bool{CompletionID(99): true})
	assert.False(t, ok)
}

func TestTakeHandleRemovesBothMappings(t *testing.T) {
	r := New()
	h := r.CreateHandleMapping(CompletionID(3))
	r.InsertReady(CompletionID(3), 42)

	result, ok := r.TakeHandle(h)
	require.True(t, ok)
	assert.Equal(t, 42, result)

	_, ok = r.TakeHandle(h)
	assert.False(t, ok)
}

func TestResolveHandlesSilentlyDropsUnknown(t *testing.T) {
	r := New()
	h := r.CreateHandleMapping(CompletionID(7))

	resolved := r.ResolveHandles([]Handle{h, Handle(9999)})
	assert.Len(t, resolved, 1)
	assert.True(t, resolved[CompletionID(7)])
}

func TestRunStateTryExecuteRun(t *testing.T) {
	s := NewRunState()
	s.InsertRunToExecute(Handle(10))

	h, ok := s.TryExecuteRun([]Handle{Handle(5), Handle(10)})
	require.True(t, ok)
	assert.Equal(t, Handle(10), h)
	assert.True(t, s.AnyExecuting([]Handle{Handle(10)}))
	assert.False(t, s.AnyExecuting([]Handle{Handle(5)}))

	s.NotifyExecuted(h)
	assert.False(t, s.AnyExecuting([]Handle{Handle(10)}))
}

func TestRegistryNotifyAck(t *testing.T) {
	r := New()
	assert.False(t, r.IsAcked(3))

	r.NotifyAck(3)
	assert.True(t, r.IsAcked(3))
	assert.False(t, r.IsAcked(4))
}
