package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// --- test fixtures ---
//
// Every scenario below drives a VM through its public surface
// (NotifyInput/TakeOutput/Sys*/DoProgress), feeding it hand-encoded protocol
// frames the same way a real orchestrator connection would, matching
// spec.md §8's concrete scenarios. TestEntryAckBookkeeping additionally
// inspects the unexported registry to observe recorded acks.

var enc = wire.NewEncoder(wire.V1)

func frame(t *testing.T, msg wire.Message) []byte {
	t.Helper()
	b, err := enc.Encode(msg)
	require.NoError(t, err)
	return b
}

func startMessage(knownEntries uint32) *messages.StartMessage {
	return &messages.StartMessage{
		ID:           []byte("inv-1"),
		DebugID:      "inv-1",
		KnownEntries: knownEntries,
	}
}

func decodeOutput(t *testing.T, buf []byte) []*wire.RawMessage {
	t.Helper()
	d := wire.NewDecoder(wire.V1)
	d.Push(buf)
	var out []*wire.RawMessage
	for {
		raw, err := d.ConsumeNext()
		require.NoError(t, err)
		if raw == nil {
			return out
		}
		out = append(out, raw)
	}
}

// TestEchoInvocation covers spec.md §8's "Echo" scenario: a single known
// entry (Input), the handler writes its request body straight back out, then
// ends.
func TestEchoInvocation(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{Value: []byte("hello")})))
	require.Equal(t, StateProcessing, m.State())

	in, err := m.SysInput()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), in.Body)
	assert.Equal(t, "inv-1", in.InvocationID)

	require.NoError(t, m.SysWriteOutput(Value{Success: in.Body}))
	require.NoError(t, m.SysEnd())
	assert.True(t, m.IsEnded())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	assert.Equal(t, wire.OutputCommand, out[0].Type())
	assert.Equal(t, wire.End, out[1].Type())
}

// TestLazyStateSuspend covers the "Lazy state suspend" scenario: a partial
// eager cache cannot answer for an unseeded key, so the VM falls back to a
// lazy GetStateCommand and suspends once the host closes input without ever
// answering it.
func TestLazyStateSuspend(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.PartialState = true
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	handle, val, err := m.SysGetState("missing-key", "get")
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.NotZero(t, handle)

	require.NoError(t, m.NotifyInputClosed())
	resp, err := m.DoProgress([]NotificationHandle{handle})
	require.Error(t, err)
	assert.Equal(t, DoProgressSuspended, resp.Kind)
	assert.True(t, m.IsSuspended())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	assert.Equal(t, wire.GetLazyStateCommand, out[0].Type())
	assert.Equal(t, wire.Suspension, out[1].Type())
	suspension, err := messages.UnmarshalSuspensionMessage(out[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, suspension.WaitingCompletions)
	assert.Empty(t, suspension.WaitingSignals)
	assert.Empty(t, suspension.WaitingNamedSignals)
}

// TestEagerStateHit covers the "Eager state hit" scenario: the Start message
// seeds a complete (non-partial) state map, so SysGetState resolves
// synchronously with handle 0 and never touches the journal.
func TestEagerStateHit(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.StateMap = []messages.StateEntry{{Key: []byte("k"), Value: []byte("cached-value")}}
	start.PartialState = false
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	handle, val, err := m.SysGetState("k", "get")
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Equal(t, []byte("cached-value"), val.Success)
	assert.Equal(t, NotificationHandle(0), handle)

	assert.Empty(t, m.TakeOutput().Buffer)
}

// TestCallThenImplicitCancel covers spec.md §8's "Call + implicit cancel"
// scenario: the handler calls another service, learns its invocation id, and
// then the invocation receives a cancel signal - do_progress propagates a
// SendSignal to the now-known callee before finally reporting
// CancelSignalReceived.
func TestCallThenImplicitCancel(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{Value: []byte("my-data")})))
	_, err := m.SysInput()
	require.NoError(t, err)

	call, err := m.SysCall(Target{Service: "MySvc", Handler: "MyHandler"}, nil, "call")
	require.NoError(t, err)

	require.NoError(t, m.NotifyInput(frame(t, &messages.CallInvocationIDNotification{
		NotificationIndex: 1,
		InvocationID:      "my-id",
	})))
	require.NoError(t, m.NotifyInput(frame(t, &messages.SignalNotification{
		SignalID: 1,
		Result:   messages.EntryResult{Kind: messages.ResultEmpty},
	})))

	resp, err := m.DoProgress([]NotificationHandle{call.InvocationID})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)
	invocationID, ok, err := m.TakeCallInvocationIDNotification(call.InvocationID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "my-id", invocationID)

	require.NoError(t, m.NotifyInputClosed())
	resp, err = m.DoProgress([]NotificationHandle{call.Result})
	require.NoError(t, err)
	assert.Equal(t, DoProgressCancelSignalReceived, resp.Kind)

	require.NoError(t, m.SysEnd())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 3)
	assert.Equal(t, wire.CallCommand, out[0].Type())
	assert.Equal(t, wire.SendSignalCommand, out[1].Type())
	sendSignal, err := messages.UnmarshalSendSignalCommand(out[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, "my-id", sendSignal.TargetInvocationID)
	assert.Equal(t, CancelSignalName, sendSignal.SignalName)
	assert.Equal(t, wire.End, out[2].Type())
}

// TestCallCancelBlocksWithoutInvocationID covers the edge case in the same
// family: cancellation cannot propagate to a child whose invocation id has
// not yet arrived, so do_progress suspends rather than reporting
// CancelSignalReceived.
func TestCallCancelBlocksWithoutInvocationID(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{Value: []byte("my-data")})))
	_, err := m.SysInput()
	require.NoError(t, err)

	call, err := m.SysCall(Target{Service: "MySvc", Handler: "MyHandler"}, nil, "call")
	require.NoError(t, err)

	require.NoError(t, m.NotifyInput(frame(t, &messages.SignalNotification{
		SignalID: 1,
		Result:   messages.EntryResult{Kind: messages.ResultEmpty},
	})))
	require.NoError(t, m.NotifyInputClosed())

	resp, err := m.DoProgress([]NotificationHandle{call.Result})
	require.Error(t, err)
	assert.Equal(t, DoProgressSuspended, resp.Kind)
}

// TestSleepReplay covers spec.md §8's "Sleep replay" scenario: on a retried
// attempt the host replays the Input command, the previously-recorded Sleep
// command, and its completion notification, all buffered ahead of the
// handler re-issuing the same sys_sleep call.
func TestSleepReplay(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(3))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	require.NoError(t, m.NotifyInput(frame(t, &messages.SleepCommand{
		WakeUpTimeMS:       1234,
		ResultCompletionID: 1,
		Name:               "sleep",
	})))
	require.NoError(t, m.NotifyInput(frame(t, &messages.CompletionNotification{
		Type:              wire.SleepCompletionNotification,
		NotificationIndex: 1,
		Result:            messages.EntryResult{Kind: messages.ResultEmpty},
	})))
	require.Equal(t, StateReplaying, m.State())

	_, err := m.SysInput()
	require.NoError(t, err)
	require.Equal(t, StateReplaying, m.State())

	handle, err := m.SysSleep(0, "sleep")
	require.NoError(t, err)

	resp, err := m.DoProgress([]NotificationHandle{handle})
	require.NoError(t, err)
	assert.Equal(t, DoProgressAnyCompleted, resp.Kind)
	assert.Equal(t, StateProcessing, m.State())

	val, ok, err := m.TakeNotification(handle)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, val.Failure)
}

// TestJournalMismatch covers the "Journal mismatch" scenario: a replayed
// entry's recorded type does not match the syscall the handler actually
// issues on this attempt, a non-determinism fault the VM must latch as fatal
// rather than silently reconcile.
func TestJournalMismatch(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(2))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	require.NoError(t, m.NotifyInput(frame(t, &messages.SleepCommand{
		WakeUpTimeMS:       1234,
		ResultCompletionID: 1,
	})))

	_, err := m.SysInput()
	require.NoError(t, err)

	_, err = m.SysCall(Target{Service: "MySvc", Handler: "MyHandler"}, nil, "call")
	require.Error(t, err)
	assert.True(t, m.IsEnded())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 1)
	assert.Equal(t, wire.ErrorMessage, out[0].Type())
}

// TestEntryAckBookkeeping covers the entry-ack side channel: an EntryAck
// arriving mid-invocation is recorded against the async-result registry
// rather than being mistaken for a replayed journal entry, and one arriving
// after the invocation has ended is silently ignored.
func TestEntryAckBookkeeping(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	require.NoError(t, m.NotifyInput(frame(t, &messages.EntryAckMessage{EntryIndex: 3})))
	assert.True(t, m.registry.IsAcked(3))
	assert.False(t, m.registry.IsAcked(4))

	require.NoError(t, m.SysEnd())
	require.NoError(t, m.NotifyInput(frame(t, &messages.EntryAckMessage{EntryIndex: 4})))
	assert.False(t, m.registry.IsAcked(4))
}

// TestRunExecution drives a run block through its full live lifecycle:
// enter, get dispatched by do_progress, propose the closure's result, then
// observe the orchestrator-delivered completion.
func TestRunExecution(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, replayed, err := m.SysRunEnter("my-run")
	require.NoError(t, err)
	require.Nil(t, replayed)

	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressExecuteRun, resp.Kind)
	assert.Equal(t, h, resp.ExecuteRun)

	result := Value{Success: []byte("run-result")}
	require.NoError(t, m.SysProposeRunCompletion(h, RunExitResult{Value: &result}, "my-run"))

	// The durable completion has not arrived yet; with input still open the
	// handler is told to keep reading.
	resp, err = m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	assert.Equal(t, DoProgressReadFromInput, resp.Kind)

	require.NoError(t, m.NotifyInput(frame(t, &messages.CompletionNotification{
		Type:              wire.RunCompletionNotification,
		NotificationIndex: 1,
		Result:            messages.EntryResult{Kind: messages.ResultValue, Value: []byte("run-result")},
	})))
	resp, err = m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)

	val, ok, err := m.TakeNotification(h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("run-result"), val.Success)

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	assert.Equal(t, wire.RunCommand, out[0].Type())
	assert.Equal(t, wire.ProposeRunCompletion, out[1].Type())
}

// TestRunWaitingPendingRun covers the WaitingPendingRun outcome: once the
// host has dispatched a run and input is closed, do_progress must not
// suspend away the in-flight work.
func TestRunWaitingPendingRun(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, _, err := m.SysRunEnter("my-run")
	require.NoError(t, err)

	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressExecuteRun, resp.Kind)

	require.NoError(t, m.NotifyInputClosed())
	resp, err = m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	assert.Equal(t, DoProgressWaitingPendingRun, resp.Kind)
	assert.False(t, m.IsSuspended())
}

// TestAwaitManyNotificationsSuspension suspends on a mixed wait set - an
// awakeable completion, a named signal and a lazy state read - and checks
// each lands in its own SuspensionMessage field.
func TestAwaitManyNotificationsSuspension(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.PartialState = true
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{Value: []byte("my-data")})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h1, awkID, err := m.SysCreateAwakeable()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(awkID, "prom_1"))

	h2, err := m.SysCreateSignalHandle("abc")
	require.NoError(t, err)

	h3, cached, err := m.SysGetState("Personaggio", "get")
	require.NoError(t, err)
	require.Nil(t, cached)

	require.NoError(t, m.NotifyInputClosed())
	resp, err := m.DoProgress([]NotificationHandle{h1, h2, h3})
	require.Error(t, err)
	assert.Equal(t, DoProgressSuspended, resp.Kind)

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	assert.Equal(t, wire.GetLazyStateCommand, out[0].Type())
	suspension, err := messages.UnmarshalSuspensionMessage(out[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, suspension.WaitingCompletions)
	assert.Equal(t, []string{"abc"}, suspension.WaitingNamedSignals)
}

// TestNamedSignalDelivery resolves a create_signal_handle wait through a
// name-addressed SignalNotification.
func TestNamedSignalDelivery(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, err := m.SysCreateSignalHandle("ready")
	require.NoError(t, err)

	require.NoError(t, m.NotifyInput(frame(t, &messages.SignalNotification{
		SignalName: "ready",
		Result:     messages.EntryResult{Kind: messages.ResultValue, Value: []byte("go")},
	})))
	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)

	val, ok, err := m.TakeNotification(h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("go"), val.Success)
}

// TestDoProgressVacuousHandles: handles the registry has never heard of
// resolve to an empty wait set, which is vacuously satisfied.
func TestDoProgressVacuousHandles(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	resp, err := m.DoProgress([]NotificationHandle{NotificationHandle(9999)})
	require.NoError(t, err)
	assert.Equal(t, DoProgressAnyCompleted, resp.Kind)
	assert.Empty(t, resp.AnyCompleted)
}

// TestStateMutationsStayEager: set/clear/clear-all update the cache
// synchronously, so later reads resolve without emitting any get command.
func TestStateMutationsStayEager(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.StateMap = []messages.StateEntry{{Key: []byte("k"), Value: []byte("v1")}}
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	require.NoError(t, m.SysSetState("k2", []byte("v2"), "set"))
	h, val, err := m.SysGetState("k2", "get")
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Equal(t, NotificationHandle(0), h)
	assert.Equal(t, []byte("v2"), val.Success)

	require.NoError(t, m.SysClearState("k", "clear"))
	_, val, err = m.SysGetState("k", "get")
	require.NoError(t, err)
	require.NotNil(t, val)
	assert.Nil(t, val.Success)

	_, keys, err := m.SysGetStateKeys("keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"k2"}, keys, "cleared key must drop out of the key set")

	require.NoError(t, m.SysClearAllState("clear-all"))
	_, keys, err = m.SysGetStateKeys("keys")
	require.NoError(t, err)
	assert.Empty(t, keys)

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 3)
	assert.Equal(t, wire.SetStateCommand, out[0].Type())
	assert.Equal(t, wire.ClearStateCommand, out[1].Type())
	assert.Equal(t, wire.ClearAllStateCommand, out[2].Type())
}

// TestGetStateKeysLazyFallback: a partial cache cannot enumerate keys, so
// the VM round-trips through a GetLazyStateKeysCommand.
func TestGetStateKeysLazyFallback(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.PartialState = true
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, keys, err := m.SysGetStateKeys("keys")
	require.NoError(t, err)
	require.Nil(t, keys)
	require.NotZero(t, h)

	require.NoError(t, m.NotifyInput(frame(t, &messages.StateKeysNotification{
		NotificationIndex: 1,
		Keys:              [][]byte{[]byte("a"), []byte("b")},
	})))
	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)

	got, ok, err := m.TakeStateKeysNotification(h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 1)
	assert.Equal(t, wire.GetLazyStateKeysCommand, out[0].Type())
}

// TestPromiseFlow awaits a workflow promise and resolves it through its
// completion notification.
func TestPromiseFlow(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, err := m.SysGetPromise("my-promise", "get-promise")
	require.NoError(t, err)

	require.NoError(t, m.NotifyInput(frame(t, &messages.CompletionNotification{
		Type:              wire.GetPromiseCompletionNotification,
		NotificationIndex: 1,
		Result:            messages.EntryResult{Kind: messages.ResultValue, Value: []byte("resolved")},
	})))
	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)

	val, ok, err := m.TakeNotification(h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("resolved"), val.Success)

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 1)
	assert.Equal(t, wire.GetPromiseCommand, out[0].Type())
}

// TestOneWayCallEmitsCommand: a send is fire-and-forget, producing exactly
// one command frame and no handle to wait on.
func TestOneWayCallEmitsCommand(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	require.NoError(t, m.SysOneWayCall(Target{Service: "Greeter", Handler: "greet"}, []byte("hi"), 0, "send"))

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 1)
	require.Equal(t, wire.OneWayCallCommand, out[0].Type())
	cmd, err := messages.UnmarshalOneWayCallCommand(out[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "Greeter", cmd.ServiceName)
	assert.Equal(t, "greet", cmd.HandlerName)
	assert.Equal(t, []byte("hi"), cmd.Parameter)
	assert.Zero(t, cmd.InvokeTimeMS)
}

// TestWriteOutputFailure encodes a terminal handler failure inside the
// Output command's result rather than as a protocol-level error.
func TestWriteOutputFailure(t *testing.T) {
	m := New(Options{})
	require.NoError(t, m.NotifyInput(frame(t, startMessage(1))))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	require.NoError(t, m.SysWriteOutput(Value{Failure: &TerminalFailure{Code: 500, Message: "boom"}}))
	require.NoError(t, m.SysEnd())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	cmd, err := messages.UnmarshalOutputCommand(out[0].Payload)
	require.NoError(t, err)
	require.Equal(t, messages.ResultFailure, cmd.Result.Kind)
	assert.Equal(t, uint32(500), cmd.Result.Failure.Code)
	assert.Equal(t, "boom", cmd.Result.Failure.Message)
	assert.Equal(t, wire.End, out[1].Type())
}

// TestSysEndIdempotentAfterSuspension: ending an already-suspended
// invocation is a no-op and appends no further bytes.
func TestSysEndIdempotentAfterSuspension(t *testing.T) {
	m := New(Options{})
	start := startMessage(1)
	start.PartialState = true
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	_, err := m.SysInput()
	require.NoError(t, err)

	h, _, err := m.SysGetState("k", "get")
	require.NoError(t, err)
	require.NoError(t, m.NotifyInputClosed())
	_, err = m.DoProgress([]NotificationHandle{h})
	require.Error(t, err)
	require.True(t, m.IsSuspended())

	taken := m.TakeOutput()
	assert.True(t, taken.Closed)

	require.NoError(t, m.SysEnd())
	assert.True(t, m.IsSuspended())
	assert.Empty(t, m.TakeOutput().Buffer)
}

// TestLazyStateReplayCompletes is the retry half of the lazy-state scenario:
// the journal now carries the get command and its completion, so the same
// handler code resolves without any new output beyond its own result.
func TestLazyStateReplayCompletes(t *testing.T) {
	m := New(Options{})
	start := startMessage(3)
	start.PartialState = true
	require.NoError(t, m.NotifyInput(frame(t, start)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
	getCmd := &messages.GetStateCommand{Key: []byte("Personaggio"), ResultCompletionID: 1, Name: "get"}
	require.NoError(t, m.NotifyInput(frame(t, getCmd)))
	require.NoError(t, m.NotifyInput(frame(t, &messages.CompletionNotification{
		Type:              wire.GetLazyStateCompletionNotification,
		NotificationIndex: 1,
		Result:            messages.EntryResult{Kind: messages.ResultValue, Value: []byte("Francesco")},
	})))
	require.Equal(t, StateReplaying, m.State())

	_, err := m.SysInput()
	require.NoError(t, err)

	h, cached, err := m.SysGetState("Personaggio", "get")
	require.NoError(t, err)
	require.Nil(t, cached)

	resp, err := m.DoProgress([]NotificationHandle{h})
	require.NoError(t, err)
	require.Equal(t, DoProgressAnyCompleted, resp.Kind)
	require.Equal(t, StateProcessing, m.State())

	val, ok, err := m.TakeNotification(h)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("Francesco"), val.Success)

	require.NoError(t, m.SysWriteOutput(Value{Success: val.Success}))
	require.NoError(t, m.SysEnd())

	out := decodeOutput(t, m.TakeOutput().Buffer)
	require.Len(t, out, 2)
	assert.Equal(t, wire.OutputCommand, out[0].Type())
	assert.Equal(t, wire.End, out[1].Type())
}

// TestRandomSeedDeterministic: the seed handed out by SysInput is a pure
// function of the invocation id.
func TestRandomSeedDeterministic(t *testing.T) {
	seed := func(id string) uint64 {
		m := New(Options{})
		start := startMessage(1)
		start.ID = []byte(id)
		start.DebugID = id
		require.NoError(t, m.NotifyInput(frame(t, start)))
		require.NoError(t, m.NotifyInput(frame(t, &messages.InputCommand{})))
		in, err := m.SysInput()
		require.NoError(t, err)
		return in.RandomSeed
	}

	assert.Equal(t, seed("inv-a"), seed("inv-a"))
	assert.NotEqual(t, seed("inv-a"), seed("inv-b"))
}
