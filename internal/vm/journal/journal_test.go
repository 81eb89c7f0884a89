package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

func newJournal(entries uint32) *Journal {
	return New(StartInfo{ID: "inv-1", DebugID: "inv-1", EntriesToReplay: entries})
}

func TestIndexesStartAtMinusOne(t *testing.T) {
	j := newJournal(1)
	assert.Equal(t, int64(-1), j.CommandIndex())
	assert.Equal(t, int64(-1), j.NotificationIndex())
}

func TestTransitionAdvancesMatchingIndex(t *testing.T) {
	j := newJournal(1)

	j.Transition(true, wire.InputCommand, "input")
	assert.Equal(t, int64(0), j.CommandIndex())
	assert.Equal(t, int64(-1), j.NotificationIndex())

	j.Transition(true, wire.SleepCommand, "sleep")
	assert.Equal(t, int64(1), j.CommandIndex())

	j.Transition(false, wire.SleepCompletionNotification, "sleep")
	assert.Equal(t, int64(1), j.CommandIndex())
	assert.Equal(t, int64(0), j.NotificationIndex())

	ty, name := j.CurrentEntry()
	assert.Equal(t, wire.SleepCompletionNotification, ty)
	assert.Equal(t, "sleep", name)
}

func TestCompletionIDAllocator(t *testing.T) {
	j := newJournal(1)
	assert.Equal(t, uint32(1), j.NextCompletionID())
	assert.Equal(t, uint32(2), j.NextCompletionID())
	assert.Equal(t, uint32(3), j.NextCompletionID())
}

func TestSignalIDAllocatorSkipsReservedBand(t *testing.T) {
	j := newJournal(1)
	assert.Equal(t, uint32(17), j.NextSignalID())
	assert.Equal(t, uint32(18), j.NextSignalID())
}

func TestReplayBufferFillAndDrain(t *testing.T) {
	j := newJournal(2)

	full := j.PushReplayEntry(ReplayEntry{Header: wire.MessageHeader{Type: wire.InputCommand}})
	assert.False(t, full)
	full = j.PushReplayEntry(ReplayEntry{Header: wire.MessageHeader{Type: wire.SleepCommand}})
	assert.True(t, full)

	peeked, ok := j.PeekReplayEntry()
	require.True(t, ok)
	assert.Equal(t, wire.InputCommand, peeked.Header.Type)
	assert.False(t, j.ReplayBufferEmpty(), "peek must not consume")

	popped, ok := j.PopReplayEntry()
	require.True(t, ok)
	assert.Equal(t, wire.InputCommand, popped.Header.Type)

	popped, ok = j.PopReplayEntry()
	require.True(t, ok)
	assert.Equal(t, wire.SleepCommand, popped.Header.Type)
	assert.True(t, j.ReplayBufferEmpty())

	_, ok = j.PopReplayEntry()
	assert.False(t, ok)
}

func TestInferEntryRetryInfo(t *testing.T) {
	fresh := New(StartInfo{EntriesToReplay: 1})
	assert.Equal(t, EntryRetryInfo{}, fresh.InferEntryRetryInfo())

	retried := New(StartInfo{
		EntriesToReplay:                1,
		RetryCountSinceLastStoredEntry: 3,
		DurationSinceLastStoredEntryMS: 4500,
	})
	info := retried.InferEntryRetryInfo()
	assert.Equal(t, uint32(3), info.RetryCount)
	assert.Equal(t, uint64(4500), info.RetryLoopDurationMS)
}
