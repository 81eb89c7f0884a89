// Package journal implements the per-invocation journal bookkeeping of the
// durable execution state machine (spec.md §4.3): the monotonic command and
// notification counters, the completion/signal id allocators, the buffer of
// entries awaiting replay, and the "current entry" metadata used to
// attribute errors to the command that produced them.
package journal

import "github.com/restatevm/sharedcore/internal/protocol/wire"

// firstSignalID is the first signal id handed out to user code. Ids 1-16
// are reserved; id 1 specifically names the implicit cancellation signal
// (see internal/vm's CancelNotificationHandle).
const firstSignalID uint32 = 17

// ReplayEntry is one message buffered during WaitingReplayEntries/Replaying,
// ready to be matched against the next live command.
type ReplayEntry struct {
	Header  wire.MessageHeader
	Payload []byte
}

// StartInfo captures the fields from the Start message needed to drive
// replay and retry-policy evaluation for the lifetime of the invocation.
type StartInfo struct {
	ID                               string
	DebugID                          string
	Key                              string
	EntriesToReplay                  uint32
	RetryCountSinceLastStoredEntry   uint32
	DurationSinceLastStoredEntryMS   uint64
}

// Journal tracks the counters and replay state for a single invocation. The
// zero value is not ready for use; call New.
type Journal struct {
	start *StartInfo

	commandIndex      int64 // -1 means "no command executed yet"
	notificationIndex int64 // -1 means "no notification entry recorded yet"
	completionIndex   uint32
	signalIndex       uint32

	replayBuffer []ReplayEntry

	currentEntryType MessageNamer
	currentEntryName string
}

// MessageNamer is the minimal surface journal needs from a message type to
// describe "what was being processed" in an error.
type MessageNamer interface {
	String() string
}

// New creates a Journal from the invocation's Start message.
func New(start StartInfo) *Journal {
	return &Journal{
		start:             &start,
		commandIndex:      -1,
		notificationIndex: -1,
		completionIndex:   1,
		signalIndex:       firstSignalID,
	}
}

func (j *Journal) StartInfo() StartInfo {
	return *j.start
}

// CommandIndex returns the index of the last command appended to the
// journal, or -1 if none has been appended yet.
func (j *Journal) CommandIndex() int64 {
	return j.commandIndex
}

// NotificationIndex returns the index of the last notification-bearing entry
// recorded, or -1 if none has been recorded yet.
func (j *Journal) NotificationIndex() int64 {
	return j.notificationIndex
}

// NextCompletionID allocates and returns the next completion id, starting at
// 1 - the original implementation's comment calls this "a clever trick for
// protobuf", since a zero-valued optional completion id is indistinguishable
// from an absent field.
func (j *Journal) NextCompletionID() uint32 {
	id := j.completionIndex
	j.completionIndex++
	return id
}

// NextSignalID allocates and returns the next signal id. Ids 1-16 are
// reserved (1 is the implicit cancellation signal); allocation starts at 17.
func (j *Journal) NextSignalID() uint32 {
	id := j.signalIndex
	j.signalIndex++
	return id
}

// Transition records that command/notification processing has advanced to a
// new entry, tagging it with the entry's type and name for later error
// attribution.
func (j *Journal) Transition(isCommand bool, entryType MessageNamer, name string) {
	if isCommand {
		j.commandIndex++
	} else {
		j.notificationIndex++
	}
	j.currentEntryType = entryType
	j.currentEntryName = name
}

// CurrentEntry returns the type and name most recently passed to Transition,
// used to populate the Error message's related_entry_* fields.
func (j *Journal) CurrentEntry() (MessageNamer, string) {
	return j.currentEntryType, j.currentEntryName
}

// PushReplayEntry appends a message received during WaitingReplayEntries to
// the replay buffer. Returns true once the buffer holds as many entries as
// StartInfo.EntriesToReplay announced.
func (j *Journal) PushReplayEntry(entry ReplayEntry) (full bool) {
	j.replayBuffer = append(j.replayBuffer, entry)
	return uint32(len(j.replayBuffer)) >= j.start.EntriesToReplay
}

// PeekReplayEntry returns the oldest buffered replay entry without removing
// it, letting a caller inspect its type before deciding whether to consume
// it as a notification (do_progress draining ahead of a matching syscall) or
// leave it for a future popOrWrite to match against a live command.
func (j *Journal) PeekReplayEntry() (ReplayEntry, bool) {
	if len(j.replayBuffer) == 0 {
		return ReplayEntry{}, false
	}
	return j.replayBuffer[0], true
}

// PopReplayEntry removes and returns the oldest buffered replay entry. The
// second return value is false if the buffer is empty.
func (j *Journal) PopReplayEntry() (ReplayEntry, bool) {
	if len(j.replayBuffer) == 0 {
		return ReplayEntry{}, false
	}
	entry := j.replayBuffer[0]
	j.replayBuffer = j.replayBuffer[1:]
	return entry, true
}

// ReplayBufferEmpty reports whether every buffered replay entry has been
// consumed - the signal that the FSM should transition Replaying->Processing.
func (j *Journal) ReplayBufferEmpty() bool {
	return len(j.replayBuffer) == 0
}

// EntryRetryInfo is the {retry_count, retry_loop_duration} pair the retry
// policy is evaluated against (spec.md §C.1). The duration is zeroed when
// retry_count is zero, matching the original's infer_entry_retry_info: a
// fresh entry has not accumulated any retry loop time yet.
type EntryRetryInfo struct {
	RetryCount         uint32
	RetryLoopDurationMS uint64
}

// InferEntryRetryInfo derives the current entry's retry info from StartInfo.
func (j *Journal) InferEntryRetryInfo() EntryRetryInfo {
	if j.start.RetryCountSinceLastStoredEntry == 0 {
		return EntryRetryInfo{}
	}
	return EntryRetryInfo{
		RetryCount:          j.start.RetryCountSinceLastStoredEntry,
		RetryLoopDurationMS: j.start.DurationSinceLastStoredEntryMS,
	}
}
