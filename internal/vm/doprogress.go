package vm

import (
	"sort"

	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/vm/asyncresult"
	"github.com/restatevm/sharedcore/internal/vm/fmtevent"
	"github.com/restatevm/sharedcore/internal/vmerrors"
)

// DoProgress is the cooperative scheduler every blocking syscall funnels
// through (spec.md's do_progress decision table): given the set of handles
// the handler is currently waiting on, decide what the handler should do
// next without ever blocking the calling goroutine itself.
func (m *VM) DoProgress(handles []NotificationHandle) (DoProgressResponse, error) {
	if err := m.checkReady(); err != nil {
		return DoProgressResponse{}, err
	}

	switch m.state {
	case StateReplaying:
		if vmErr := m.drainReplayNotificationsAhead(); vmErr != nil {
			return DoProgressResponse{}, m.fail(vmErr)
		}
	case StateProcessing:
	default:
		return DoProgressResponse{}, m.fail(vmerrors.UnexpectedState(m.state.String(), fmtevent.Of(fmtevent.DoProgress())))
	}

	if completed := m.completedOf(handles); len(completed) > 0 {
		return DoProgressResponse{Kind: DoProgressAnyCompleted, AnyCompleted: completed}, nil
	}

	targets := m.registry.ResolveHandles(handles)
	if len(targets) == 0 {
		// A vacuous handle set means the caller isn't actually waiting on
		// anything in particular - there is nothing left to resolve, so
		// report it as already satisfied rather than reading more input or
		// suspending on its behalf.
		return DoProgressResponse{Kind: DoProgressAnyCompleted}, nil
	}
	if id, found := m.registry.ProcessNextUntilAnyFound(targets); found {
		if h, ok := m.handleForID(handles, id); ok {
			return DoProgressResponse{Kind: DoProgressAnyCompleted, AnyCompleted: []NotificationHandle{h}}, nil
		}
	}

	if h, ok := m.runs.TryExecuteRun(handles); ok {
		return DoProgressResponse{Kind: DoProgressExecuteRun, ExecuteRun: h}, nil
	}

	if !m.inputClosed {
		return DoProgressResponse{Kind: DoProgressReadFromInput}, nil
	}

	if m.runs.AnyExecuting(handles) {
		return DoProgressResponse{Kind: DoProgressWaitingPendingRun}, nil
	}

	// Nothing left to drive the handler's own wait forward. Draining the
	// queue above may, as a side effect, have just resolved the well-known
	// cancel handle - only now, with every other avenue exhausted, is that
	// worth surfacing: CancelSignalReceived preempts suspension, never a
	// genuine completion the handler was more directly waiting on.
	if m.registry.IsHandleCompleted(CancelNotificationHandle) {
		wantsCancel := m.opts.ImplicitCancellation == ImplicitCancellationEnabled || containsHandle(handles, CancelNotificationHandle)
		if wantsCancel {
			if blocked := m.propagateCancelToChildren(); !blocked {
				return DoProgressResponse{Kind: DoProgressCancelSignalReceived}, nil
			}
		}
	}

	m.emitSuspension(targets)
	m.state = StateSuspended
	return DoProgressResponse{Kind: DoProgressSuspended, Suspended: vmerrors.ErrSuspended}, vmerrors.ErrSuspended
}

// emitSuspension appends the SuspensionMessage naming every notification the
// handler was waiting on. The one-shot output EOF follows from DoProgress
// then setting StateSuspended (spec.md §4.2's Processing → Suspended
// transition, §8's "at-most-once output" property).
// The waiting set is partitioned by how each id is addressed: completion
// ids, reserved signal ids, and signal names travel in separate fields (§6).
func (m *VM) emitSuspension(targets map[asyncresult.NotificationID]bool) {
	msg := &messages.SuspensionMessage{}
	for id := range targets {
		switch id.Kind {
		case asyncresult.KindCompletion:
			msg.WaitingCompletions = append(msg.WaitingCompletions, id.Value)
		case asyncresult.KindSignal:
			msg.WaitingSignals = append(msg.WaitingSignals, id.Value)
		case asyncresult.KindSignalName:
			msg.WaitingNamedSignals = append(msg.WaitingNamedSignals, id.Name)
		}
	}
	sort.Slice(msg.WaitingCompletions, func(i, j int) bool { return msg.WaitingCompletions[i] < msg.WaitingCompletions[j] })
	sort.Slice(msg.WaitingSignals, func(i, j int) bool { return msg.WaitingSignals[i] < msg.WaitingSignals[j] })
	sort.Strings(msg.WaitingNamedSignals)
	if payload, err := m.encoder.Encode(msg); err == nil {
		m.outBuf = append(m.outBuf, payload...)
	}
}

// propagateCancelToChildren sends the well-known cancellation signal to
// every child invocation known so far that hasn't already received one, and
// reports whether propagation must still wait on a child whose invocation id
// hasn't arrived yet (spec.md §4.6: cancellation blocks pending that id
// before it can be considered fully propagated).
func (m *VM) propagateCancelToChildren() (blocked bool) {
	for _, child := range m.knownChildren {
		if m.cancelledChildren[child] {
			continue
		}
		// SysCancel only fails by latching a fatal VMError, which checkReady
		// already surfaces to every subsequent call; nothing more to do with
		// it here.
		_ = m.SysCancel(child, "")
		m.cancelledChildren[child] = true
	}
	return len(m.pendingCallIDs) > 0
}

func (m *VM) completedOf(handles []NotificationHandle) []NotificationHandle {
	var out []NotificationHandle
	for _, h := range handles {
		if m.registry.IsHandleCompleted(h) {
			out = append(out, h)
		}
	}
	return out
}

func (m *VM) handleForID(handles []NotificationHandle, id asyncresult.NotificationID) (NotificationHandle, bool) {
	for _, h := range handles {
		if got, ok := m.registry.LookupHandle(h); ok && got == id {
			return h, true
		}
	}
	return 0, false
}

func containsHandle(handles []NotificationHandle, target NotificationHandle) bool {
	for _, h := range handles {
		if h == target {
			return true
		}
	}
	return false
}
