package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

func TestStartMessageRoundtrip(t *testing.T) {
	want := &StartMessage{
		ID:            []byte("inv-1"),
		DebugID:       "dbg-1",
		KnownEntries:  3,
		StateMap:      []StateEntry{{Key: []byte("k"), Value: []byte("v")}},
		PartialState:  true,
		Key:           "obj-key",
	}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalStartMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.DebugID, got.DebugID)
	assert.Equal(t, want.KnownEntries, got.KnownEntries)
	assert.Equal(t, want.StateMap, got.StateMap)
	assert.Equal(t, want.PartialState, got.PartialState)
	assert.Equal(t, want.Key, got.Key)
}

func TestInputCommandRoundtrip(t *testing.T) {
	want := &InputCommand{
		Headers: []Header{{Key: "content-type", Value: "application/json"}},
		Value:   []byte(`{"a":1}`),
		Name:    "input",
	}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalInputCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, want.Headers, got.Headers)
	assert.Equal(t, want.Value, got.Value)
	assert.Equal(t, want.Name, got.Name)
	assert.True(t, want.HeaderEqual(got))
}

func TestGetStateCommandRoundtripAndMessageType(t *testing.T) {
	lazy := &GetStateCommand{Key: []byte("k"), Name: "get-k"}
	assert.Equal(t, wire.GetLazyStateCommand, lazy.MessageType())

	payload, err := lazy.MarshalPayload()
	require.NoError(t, err)
	got, err := UnmarshalGetStateCommand(payload, false)
	require.NoError(t, err)
	assert.Equal(t, lazy.Key, got.Key)
	assert.Equal(t, lazy.Name, got.Name)
	assert.True(t, lazy.HeaderEqual(got))

	eager := &GetStateCommand{Eager: true, Key: []byte("k"), Name: "get-k"}
	assert.Equal(t, wire.GetEagerStateCommand, eager.MessageType())
}

func TestCallCommandHeaderEqual(t *testing.T) {
	a := &CallCommand{ServiceName: "svc", HandlerName: "h", Parameter: []byte("p"), Key: "k", Name: "call-1"}
	b := &CallCommand{ServiceName: "svc", HandlerName: "h", Parameter: []byte("p"), Key: "k", Name: "call-1"}
	c := &CallCommand{ServiceName: "svc", HandlerName: "h", Parameter: []byte("different"), Key: "k", Name: "call-1"}

	assert.True(t, a.HeaderEqual(b))
	assert.False(t, a.HeaderEqual(c))
}

func TestCompletionNotificationRoundtripValue(t *testing.T) {
	want := &CompletionNotification{
		Type:              wire.GetLazyStateCompletionNotification,
		NotificationIndex: 4,
		Result:            EntryResult{Kind: ResultValue, Value: []byte("cached")},
	}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalCompletionNotification(wire.GetLazyStateCompletionNotification, payload)
	require.NoError(t, err)
	assert.Equal(t, want.NotificationIndex, got.NotificationIndex)
	assert.Equal(t, want.Result.Kind, got.Result.Kind)
	assert.Equal(t, want.Result.Value, got.Result.Value)
}

func TestCompletionNotificationRoundtripFailure(t *testing.T) {
	want := &CompletionNotification{
		Type:              wire.SleepCompletionNotification,
		NotificationIndex: 7,
		Result:            EntryResult{Kind: ResultFailure, Failure: &Failure{Code: 500, Message: "boom"}},
	}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalCompletionNotification(wire.SleepCompletionNotification, payload)
	require.NoError(t, err)
	require.Equal(t, ResultFailure, got.Result.Kind)
	assert.Equal(t, uint32(500), got.Result.Failure.Code)
	assert.Equal(t, "boom", got.Result.Failure.Message)
}

func TestCompletePromiseCommandHeaderEqual(t *testing.T) {
	a := &CompletePromiseCommand{Key: "p", Name: "n", Completion: EntryResult{Kind: ResultValue, Value: []byte("v")}}
	b := &CompletePromiseCommand{Key: "p", Name: "n", Completion: EntryResult{Kind: ResultValue, Value: []byte("v")}}
	c := &CompletePromiseCommand{Key: "p", Name: "n", Completion: EntryResult{Kind: ResultValue, Value: []byte("other")}}

	assert.True(t, a.HeaderEqual(b))
	assert.False(t, a.HeaderEqual(c))
}

func TestSignalNotificationRoundtrip(t *testing.T) {
	want := &SignalNotification{SignalID: 1, Result: EntryResult{Kind: ResultEmpty}}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalSignalNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, want.SignalID, got.SignalID)
	assert.Empty(t, got.SignalName)
	assert.Equal(t, ResultEmpty, got.Result.Kind)
}

func TestNamedSignalNotificationRoundtrip(t *testing.T) {
	want := &SignalNotification{SignalName: "abc", Result: EntryResult{Kind: ResultValue, Value: []byte("v")}}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalSignalNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.SignalName)
	assert.Zero(t, got.SignalID)
	assert.Equal(t, []byte("v"), got.Result.Value)
}

func TestSuspensionMessageRoundtrip(t *testing.T) {
	want := &SuspensionMessage{
		WaitingCompletions:  []uint32{1, 4},
		WaitingSignals:      []uint32{17},
		WaitingNamedSignals: []string{"abc"},
	}
	payload, err := want.MarshalPayload()
	require.NoError(t, err)

	got, err := UnmarshalSuspensionMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, want.WaitingCompletions, got.WaitingCompletions)
	assert.Equal(t, want.WaitingSignals, got.WaitingSignals)
	assert.Equal(t, want.WaitingNamedSignals, got.WaitingNamedSignals)
}
