package asyncresult

// RunState tracks which run-block handles are known (to_execute) and which
// are currently being driven by the host (executing), so do_progress's
// ExecuteRun/WaitingPendingRun decision can be made without re-deriving it
// from the journal on every call.
type RunState struct {
	toExecute map[Handle]bool
	executing map[Handle]bool
}

func NewRunState() *RunState {
	return &RunState{
		toExecute: make(map[Handle]bool),
		executing: make(map[Handle]bool),
	}
}

// InsertRunToExecute registers a run block's handle as pending execution,
// called when sys_run_enter decides the block has not been replayed.
func (s *RunState) InsertRunToExecute(h Handle) {
	s.toExecute[h] = true
}

// TryExecuteRun intersects the caller-provided candidate handles against the
// pending-execution set; the first match (by candidate order) is moved from
// pending into executing and returned.
func (s *RunState) TryExecuteRun(candidates []Handle) (Handle, bool) {
	for _, h := range candidates {
		if s.toExecute[h] {
			delete(s.toExecute, h)
			s.executing[h] = true
			return h, true
		}
	}
	return 0, false
}

// AnyExecuting reports whether any of candidates names a run block currently
// being executed by the host, used to distinguish WaitingPendingRun (the
// handler is specifically awaiting an in-flight run) from a genuine
// suspension that would otherwise discard that in-flight work.
func (s *RunState) AnyExecuting(candidates []Handle) bool {
	for _, h := range candidates {
		if s.executing[h] {
			return true
		}
	}
	return false
}

// NotifyExecuted marks a run block as no longer executing, called once its
// result has been proposed back via propose_run_completion.
func (s *RunState) NotifyExecuted(h Handle) {
	delete(s.executing, h)
}
