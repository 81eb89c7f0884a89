package vm

import (
	"time"

	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/protocol/wire"
	"github.com/restatevm/sharedcore/internal/retry"
	"github.com/restatevm/sharedcore/internal/vm/asyncresult"
	"github.com/restatevm/sharedcore/internal/vm/eagerstate"
	"github.com/restatevm/sharedcore/internal/vm/fmtevent"
	"github.com/restatevm/sharedcore/internal/vm/journal"
	"github.com/restatevm/sharedcore/internal/vmerrors"
)

// State is the invocation's position in the protocol FSM (spec.md §4.2).
type State int

const (
	StateWaitingStart State = iota
	StateWaitingReplayEntries
	StateReplaying
	StateProcessing
	StateSuspended
	StateEnded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateWaitingStart:
		return "WaitingStart"
	case StateWaitingReplayEntries:
		return "WaitingReplayEntries"
	case StateReplaying:
		return "Replaying"
	case StateProcessing:
		return "Processing"
	case StateSuspended:
		return "Suspended"
	case StateEnded:
		return "Ended"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// VM is one invocation's durable-execution state machine. It owns no I/O: a
// caller pushes inbound bytes via NotifyInput and drains outbound bytes via
// TakeOutput, driving the journal/async-result/eager-state machinery
// entirely in memory.
type VM struct {
	opts Options

	state State
	fatal *vmerrors.VMError

	decoder *wire.Decoder
	encoder *wire.Encoder
	outBuf  []byte

	inputClosed bool

	journal  *journal.Journal
	registry *asyncresult.Registry
	runs     *asyncresult.RunState
	eager    *eagerstate.State

	insideRun bool

	invocationID []byte
	debugID      string
	key          string

	// pendingCallIDs tracks the invocation-id side channel of every two-way
	// call whose callee invocation id is not yet known, so implicit
	// cancellation knows when it must wait before it can propagate (spec.md
	// §4.6: "if a child's invocation id is not yet known, cancellation
	// blocks pending its arrival").
	pendingCallIDs []asyncresult.NotificationID
	// knownChildren lists every callee invocation id learned so far,
	// regardless of whether the handler ever asked for it.
	knownChildren []string
	// cancelledChildren records invocation ids already sent a cancel signal,
	// so a cancellation check repeated across several DoProgress calls (or
	// replayed in full on a later attempt, where the SendSignal entries
	// themselves are matched by the ordinary replay machinery) never sends
	// the signal twice live.
	cancelledChildren map[string]bool
}

// New constructs a VM ready to receive the Start message for a fresh
// invocation attempt.
func New(opts Options) *VM {
	return &VM{
		opts:    opts,
		state:   StateWaitingStart,
		decoder: wire.NewDecoder(wire.V1),
		encoder: wire.NewEncoder(wire.V1),
	}
}

// State reports the VM's current FSM state.
func (m *VM) State() State { return m.state }

// IsSuspended reports whether the invocation has ended this round without
// completing, and should be resumed via a fresh invocation attempt once its
// outstanding notifications are ready.
func (m *VM) IsSuspended() bool { return m.state == StateSuspended }

// IsEnded reports whether the invocation has reached a terminal state
// (success or sticky fatal error).
func (m *VM) IsEnded() bool { return m.state == StateEnded || m.state == StateErrored }

// LatchedError returns the sticky fatal error, or nil if none has been
// latched. Hosts use it to attribute a failed attempt after the drive loop
// returns.
func (m *VM) LatchedError() *vmerrors.VMError { return m.fatal }

// fail latches err as the sticky fatal error, transitions to StateErrored and
// emits the corresponding ErrorMessage to the output buffer, mirroring the
// original's "any VMError, once observed, poisons every future call".
func (m *VM) fail(err *vmerrors.VMError) *vmerrors.VMError {
	if m.fatal != nil {
		return m.fatal
	}
	m.fatal = err
	if m.state == StateSuspended || m.state == StateEnded {
		// Output is already EOF'd; latch the error without appending bytes.
		return err
	}
	m.state = StateErrored

	entryType, entryName := journalCurrentEntry(m.journal)
	errMsg := &messages.ErrorMessage{
		Code:        uint32(err.Code),
		Message:     err.Message,
		Description: err.Description,
	}
	if entryType != nil {
		idx := uint32(0)
		if m.journal != nil {
			if ci := m.journal.CommandIndex(); ci >= 0 {
				idx = uint32(ci)
			}
		}
		errMsg.RelatedEntryIndex = &idx
		name := entryName
		errMsg.RelatedEntryName = &name
	}
	if m.opts.RetryPolicy != nil && m.journal != nil {
		info := m.journal.InferEntryRetryInfo()
		next := m.opts.RetryPolicy.NextRetry(retry.EntryRetryInfo{
			RetryCount:        info.RetryCount,
			RetryLoopDuration: time.Duration(info.RetryLoopDurationMS) * time.Millisecond,
		})
		if next.ShouldRetry && next.Delay != nil {
			ms := uint64(next.Delay.Milliseconds())
			errMsg.NextRetryDelayMS = &ms
		}
	}
	if payload, encErr := m.encoder.Encode(errMsg); encErr == nil {
		m.outBuf = append(m.outBuf, payload...)
	}
	return err
}

// recordChildInvocationID removes id from the set of calls whose callee is
// still unknown and remembers invocationID as a known child, for implicit
// cancellation propagation.
func (m *VM) recordChildInvocationID(id asyncresult.NotificationID, invocationID string) {
	for i, pending := range m.pendingCallIDs {
		if pending == id {
			m.pendingCallIDs = append(m.pendingCallIDs[:i], m.pendingCallIDs[i+1:]...)
			break
		}
	}
	for _, known := range m.knownChildren {
		if known == invocationID {
			return
		}
	}
	m.knownChildren = append(m.knownChildren, invocationID)
}

func journalCurrentEntry(j *journal.Journal) (journal.MessageNamer, string) {
	if j == nil {
		return nil, ""
	}
	return j.CurrentEntry()
}

// checkReady returns the sticky fatal error, if any, so every public
// operation can bail out uniformly once the invocation has latched an error.
func (m *VM) checkReady() error {
	if m.fatal != nil {
		return m.fatal
	}
	return nil
}

// NotifyInput feeds newly received bytes into the VM, decoding as many
// complete frames as the chunk contains and driving the FSM forward.
func (m *VM) NotifyInput(chunk []byte) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	m.decoder.Push(chunk)
	for {
		raw, err := m.decoder.ConsumeNext()
		if err != nil {
			return m.fail(vmerrors.Newf(vmerrors.CodeProtocolViolation, "malformed frame: %v", err))
		}
		if raw == nil {
			return nil
		}
		if err := m.handleFrame(raw); err != nil {
			return err
		}
	}
}

// NotifyInputClosed tells the VM the host will send no further bytes. This
// is fatal if the invocation is still waiting to receive its full replay
// set; otherwise it simply records that DoProgress must not offer
// DoProgressReadFromInput again.
func (m *VM) NotifyInputClosed() error {
	if err := m.checkReady(); err != nil {
		return err
	}
	if m.state == StateWaitingStart || m.state == StateWaitingReplayEntries {
		return m.fail(vmerrors.ErrInputClosedWhileWaitingEntries)
	}
	m.inputClosed = true
	return nil
}

// TakeOutput drains and returns every byte buffered for the host since the
// last call.
func (m *VM) TakeOutput() TakeOutputResult {
	buf := m.outBuf
	m.outBuf = nil
	return TakeOutputResult{Buffer: buf, Closed: m.IsEnded() || m.IsSuspended()}
}

func (m *VM) handleFrame(raw *wire.RawMessage) error {
	if raw.Type() == wire.EntryAck {
		return m.handleEntryAck(raw)
	}
	switch m.state {
	case StateWaitingStart:
		if raw.Type() != wire.Start {
			return m.fail(vmerrors.UnexpectedState(m.state.String(), fmtevent.Of(fmtevent.MessageType(raw.Type()))))
		}
		start, err := messages.UnmarshalStartMessage(raw.Payload)
		if err != nil {
			return m.fail(vmerrors.Newf(vmerrors.CodeProtocolViolation, "invalid start message: %v", err))
		}
		return m.onStart(start)
	case StateWaitingReplayEntries:
		full := m.journal.PushReplayEntry(journal.ReplayEntry{Header: raw.Header, Payload: raw.Payload})
		if full {
			if m.journal.StartInfo().EntriesToReplay == 1 {
				// Exactly one entry was ever going to be replayed and it just
				// arrived: there is nothing left to buffer ahead of live
				// processing, so skip Replaying entirely (spec.md §4.2).
				m.state = StateProcessing
			} else {
				m.state = StateReplaying
			}
		}
		return nil
	case StateReplaying, StateProcessing:
		return m.onLiveEntry(raw)
	default:
		return m.fail(vmerrors.UnexpectedState(m.state.String(), fmtevent.Of(fmtevent.MessageType(raw.Type()))))
	}
}

// handleEntryAck records that a previously proposed entry (typically a Run
// block's result) has been durably stored by the orchestrator. Unlike every
// other inbound message it is accepted across WaitingReplayEntries,
// Replaying and Processing alike, silently dropped once the invocation has
// ended or suspended, and otherwise rejected as an unexpected message
// (spec.md §3 entry-ack bookkeeping).
func (m *VM) handleEntryAck(raw *wire.RawMessage) error {
	switch m.state {
	case StateWaitingReplayEntries, StateReplaying, StateProcessing:
		ack, err := messages.UnmarshalEntryAckMessage(raw.Payload)
		if err != nil {
			return m.fail(vmerrors.Newf(vmerrors.CodeProtocolViolation, "invalid entry ack: %v", err))
		}
		m.registry.NotifyAck(ack.EntryIndex)
		return nil
	case StateSuspended, StateEnded:
		return nil
	default:
		return m.fail(vmerrors.UnexpectedState(m.state.String(), fmtevent.Of(fmtevent.MessageType(raw.Type()))))
	}
}

func (m *VM) onStart(start *messages.StartMessage) error {
	if start.KnownEntries == 0 {
		return m.fail(vmerrors.ErrKnownEntriesIsZero)
	}

	seed := make(map[string][]byte, len(start.StateMap))
	for _, se := range start.StateMap {
		seed[string(se.Key)] = se.Value
	}
	m.eager = eagerstate.New(seed, start.PartialState)
	m.journal = journal.New(journal.StartInfo{
		ID:                             string(start.ID),
		DebugID:                        start.DebugID,
		Key:                            start.Key,
		EntriesToReplay:                start.KnownEntries,
		RetryCountSinceLastStoredEntry: start.RetryCountSinceLastStoredEntry,
		DurationSinceLastStoredEntryMS: start.DurationSinceLastStoredEntryMS,
	})
	m.registry = asyncresult.New()
	m.runs = asyncresult.NewRunState()
	m.cancelledChildren = make(map[string]bool)
	m.invocationID = start.ID
	m.debugID = start.DebugID
	m.key = start.Key
	m.state = StateWaitingReplayEntries
	return nil
}

// onLiveEntry handles a frame arriving outside the replay-buffer window: a
// notification or signal the orchestrator is delivering as it becomes
// available, rather than a previously recorded journal entry.
func (m *VM) onLiveEntry(raw *wire.RawMessage) error {
	if raw.Type().IsCommand() {
		return m.fail(vmerrors.ErrUnexpectedEntryMessage)
	}
	decoded, err := messages.Decode(raw)
	if err != nil {
		return m.fail(vmerrors.Newf(vmerrors.CodeProtocolViolation, "decode failed: %v", err))
	}
	if err := m.enqueueDecoded(decoded); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *VM) enqueueDecoded(decoded any) *vmerrors.VMError {
	switch v := decoded.(type) {
	case *messages.CompletionNotification:
		m.registry.Enqueue(asyncresult.Notification{ID: asyncresult.CompletionID(v.NotificationIndex), Result: v})
	case *messages.StateKeysNotification:
		m.registry.Enqueue(asyncresult.Notification{ID: asyncresult.CompletionID(v.NotificationIndex), Result: v})
	case *messages.CallInvocationIDNotification:
		id := asyncresult.CompletionID(v.NotificationIndex)
		m.registry.Enqueue(asyncresult.Notification{ID: id, Result: v})
		m.recordChildInvocationID(id, v.InvocationID)
	case *messages.SignalNotification:
		id := asyncresult.SignalID(v.SignalID)
		if v.SignalName != "" {
			id = asyncresult.SignalNameID(v.SignalName)
		}
		m.registry.Enqueue(asyncresult.Notification{ID: id, Result: v})
	case *wire.RawMessage:
		// Custom entry band: this VM has no interpretation, so it is simply
		// dropped rather than latching a fatal error.
		return nil
	default:
		return vmerrors.ErrUnexpectedEntryMessage
	}
	return nil
}
