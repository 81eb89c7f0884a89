package vm

import (
	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/protocol/wire"
	"github.com/restatevm/sharedcore/internal/vm/fmtevent"
	"github.com/restatevm/sharedcore/internal/vmerrors"
)

// drainNotificationsAndPopCommand pops buffered replay entries, feeding every
// notification-shaped one to the registry, until either a command-shaped
// entry surfaces (returned to the caller for header comparison) or the
// buffer runs dry. Exhausting the buffer flips the FSM from Replaying to
// Processing, the point past which every subsequent command is newly
// written rather than matched against history.
func (m *VM) drainNotificationsAndPopCommand() (messages.Command, *vmerrors.VMError) {
	for {
		entry, ok := m.journal.PopReplayEntry()
		if !ok {
			if m.state == StateReplaying && m.journal.ReplayBufferEmpty() {
				m.state = StateProcessing
			}
			return nil, nil
		}
		decoded, err := messages.Decode(&wire.RawMessage{Header: entry.Header, Payload: entry.Payload})
		if err != nil {
			return nil, vmerrors.Newf(vmerrors.CodeJournalMismatch, "corrupt replay entry: %v", err)
		}
		if cmd, ok := decoded.(messages.Command); ok {
			if m.journal.ReplayBufferEmpty() {
				m.state = StateProcessing
			}
			return cmd, nil
		}
		if vmErr := m.enqueueDecoded(decoded); vmErr != nil {
			return nil, vmErr
		}
		if m.journal.ReplayBufferEmpty() {
			m.state = StateProcessing
		}
	}
}

// drainReplayNotificationsAhead feeds every buffered notification-shaped
// entry sitting ahead of the next command into the registry, without
// consuming that next command itself. do_progress calls this before making
// its decision: a notification completing a handle the handler already holds
// may be sitting several entries ahead in the replay buffer, queued for a
// command the handler hasn't reached yet (spec.md §8 "Sleep replay": the
// sleep's completion notification is the third buffered entry, but
// do_progress must see it right after the second).
func (m *VM) drainReplayNotificationsAhead() *vmerrors.VMError {
	for {
		entry, ok := m.journal.PeekReplayEntry()
		if !ok {
			return nil
		}
		if entry.Header.Type.IsCommand() {
			return nil
		}
		m.journal.PopReplayEntry()
		decoded, err := messages.Decode(&wire.RawMessage{Header: entry.Header, Payload: entry.Payload})
		if err != nil {
			return vmerrors.Newf(vmerrors.CodeJournalMismatch, "corrupt replay entry: %v", err)
		}
		if vmErr := m.enqueueDecoded(decoded); vmErr != nil {
			return vmErr
		}
		if m.journal.ReplayBufferEmpty() {
			m.state = StateProcessing
			return nil
		}
	}
}

// popOrWrite is the heart of every syscall: it either recovers the
// previously recorded entry matching cmd (verifying the two agree on every
// header field) or, once replay has caught up with live processing, writes
// cmd to the output buffer as a brand new journal entry. The bool result
// reports whether the entry was replayed.
func (m *VM) popOrWrite(cmd messages.Command) (bool, *vmerrors.VMError) {
	if m.insideRun {
		return false, vmerrors.ErrInsideRun
	}
	// Completion ids are allocated in replay and live processing alike, so
	// the allocator's position stays identical across attempts (deterministic
	// user code issues the same completable syscalls in the same order). A
	// replayed entry's stored id then overwrites the allocation below, which
	// under determinism is the same value.
	if cc, ok := cmd.(messages.Completable); ok && cc.CompletionID() == 0 {
		cc.SetCompletionID(m.journal.NextCompletionID())
	}
	if m.state == StateReplaying {
		replayed, err := m.drainNotificationsAndPopCommand()
		if err != nil {
			return false, err
		}
		if replayed != nil {
			if !replayed.HeaderEqual(cmd) {
				return false, vmerrors.EntryMismatch(
					fmtevent.Of(fmtevent.MessageType(cmd.MessageType())),
					fmtevent.Of(fmtevent.MessageType(replayed.MessageType())),
				)
			}
			if rc, ok := replayed.(messages.Completable); ok {
				if cc, ok2 := cmd.(messages.Completable); ok2 {
					cc.SetCompletionID(rc.CompletionID())
				}
			}
			m.journal.Transition(true, replayed.MessageType(), replayed.EntryName())
			return true, nil
		}
		// Buffer just drained; m.state is now Processing. Fall through to
		// write cmd live, the same as any new entry.
	}

	payload, encErr := m.encoder.Encode(cmd)
	if encErr != nil {
		return false, vmerrors.Newf(vmerrors.CodeInternal, "encode %s: %v", cmd.MessageType(), encErr)
	}
	m.outBuf = append(m.outBuf, payload...)
	m.journal.Transition(true, cmd.MessageType(), cmd.EntryName())
	return false, nil
}

// popOrWriteInput is SysInput's specialization of popOrWrite: the Input
// command carries no caller-supplied fields to compare, so there is nothing
// to construct ahead of time - every invocation's very first entry is always
// recovered from replay, never written fresh, since the host seeds it before
// ever invoking the handler.
func (m *VM) popOrWriteInput() (*messages.InputCommand, *vmerrors.VMError) {
	replayed, err := m.drainNotificationsAndPopCommand()
	if err != nil {
		return nil, err
	}
	if replayed == nil {
		return nil, vmerrors.UnavailableEntry(fmtevent.Of(fmtevent.MessageType(wire.InputCommand)))
	}
	ic, ok := replayed.(*messages.InputCommand)
	if !ok {
		return nil, vmerrors.ErrUnexpectedInputMessage
	}
	m.journal.Transition(true, ic.MessageType(), ic.EntryName())
	return ic, nil
}
