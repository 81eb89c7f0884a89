// Package asyncresult implements the notification registry (spec.md §4.4,
// C4): the FIFO of not-yet-claimed notifications arriving from the
// orchestrator, the map of notifications whose result is already known, and
// the handle allocator user code actually calls back with.
package asyncresult

// NotificationIDKind distinguishes the two namespaces notifications are
// addressed by: completions correlate to a specific command by completion
// id, signals are addressed by a separately allocated signal id.
type NotificationIDKind int

const (
	KindCompletion NotificationIDKind = iota
	KindSignal
	KindSignalName
)

// NotificationID addresses a single notification: a completion of a prior
// command, a signal delivered out of band by its reserved numeric id, or a
// user-named signal. Value and Name are mutually exclusive; Name is set only
// for KindSignalName.
type NotificationID struct {
	Kind  NotificationIDKind
	Value uint32
	Name  string
}

func CompletionID(id uint32) NotificationID  { return NotificationID{Kind: KindCompletion, Value: id} }
func SignalID(id uint32) NotificationID      { return NotificationID{Kind: KindSignal, Value: id} }
func SignalNameID(name string) NotificationID {
	return NotificationID{Kind: KindSignalName, Name: name}
}

func (id NotificationID) String() string {
	switch id.Kind {
	case KindCompletion:
		return "CompletionId(" + itoa(id.Value) + ")"
	case KindSignal:
		return "SignalId(" + itoa(id.Value) + ")"
	case KindSignalName:
		return "SignalName(" + id.Name + ")"
	default:
		return "UnknownNotificationId"
	}
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Handle is the opaque token user code holds onto, returned from every
// syscall that may block.
type Handle uint32

// CancelHandle is the well-known handle for the implicit cancellation
// signal, seeded into every registry at construction.
const CancelHandle Handle = 1

// CancelSignalID is the well-known signal id the orchestrator uses to
// deliver a cancellation request.
const CancelSignalID uint32 = 1

// Notification is a (id, result) pair waiting in the to-process queue,
// not yet known to correspond to any handle the handler has asked about.
type Notification struct {
	ID     NotificationID
	Result any
}

// Registry holds every notification-related piece of mutable state for one
// invocation: the queue of not-yet-triaged notifications, the map of
// notifications whose result is known, and the handle<->id mapping.
type Registry struct {
	toProcess     []Notification
	ready         map[NotificationID]any
	handleMapping map[Handle]NotificationID
	nextHandle    uint32
	acked         map[uint32]bool
}

// New constructs a Registry with the cancellation handle pre-seeded, as the
// original's AsyncResultsState::new does.
func New() *Registry {
	r := &Registry{
		ready:         make(map[NotificationID]any),
		handleMapping: make(map[Handle]NotificationID),
		nextHandle:    firstAllocatableHandle,
		acked:         make(map[uint32]bool),
	}
	r.handleMapping[CancelHandle] = SignalID(CancelSignalID)
	return r
}

// NotifyAck records that entryIndex's proposed result (e.g. a Run block's
// completion) has been durably committed by the orchestrator, per spec.md
// §3's entry-ack bookkeeping.
func (r *Registry) NotifyAck(entryIndex uint32) {
	r.acked[entryIndex] = true
}

// IsAcked reports whether entryIndex has been acknowledged as durably
// committed.
func (r *Registry) IsAcked(entryIndex uint32) bool {
	return r.acked[entryIndex]
}

const firstAllocatableHandle = 17

// Enqueue appends a notification that has arrived from the orchestrator but
// has not yet been matched against a handle the handler is waiting on.
func (r *Registry) Enqueue(n Notification) {
	r.toProcess = append(r.toProcess, n)
}

// InsertReady records that id's result is now known, regardless of whether
// any handle currently maps to it.
func (r *Registry) InsertReady(id NotificationID, result any) {
	r.ready[id] = result
}

// CreateHandleMapping allocates a new handle for id and returns it.
func (r *Registry) CreateHandleMapping(id NotificationID) Handle {
	h := Handle(r.nextHandle)
	r.nextHandle++
	r.handleMapping[h] = id
	return h
}

// ProcessNextUntilAnyFound drains the to-process queue, moving every popped
// notification's result into ready, until either a notification whose id is
// in targets is found (returned) or the queue is exhausted.
func (r *Registry) ProcessNextUntilAnyFound(targets map[NotificationID]bool) (NotificationID, bool) {
	for len(r.toProcess) > 0 {
		n := r.toProcess[0]
		r.toProcess = r.toProcess[1:]
		r.ready[n.ID] = n.Result
		if targets[n.ID] {
			return n.ID, true
		}
	}
	return NotificationID{}, false
}

// IsHandleCompleted reports whether the notification a handle maps to
// already has a known result.
func (r *Registry) IsHandleCompleted(h Handle) bool {
	id, ok := r.handleMapping[h]
	if !ok {
		return false
	}
	_, ready := r.ready[id]
	return ready
}

// LookupHandle returns the notification id a handle maps to.
func (r *Registry) LookupHandle(h Handle) (NotificationID, bool) {
	id, ok := r.handleMapping[h]
	return id, ok
}

// ResolveHandles maps a set of handles down to the notification ids they
// name, silently dropping handles this registry has never heard of -
// matching the original's tolerant resolve_notification_handles, which
// lets a stale handle from a prior replay round simply vanish instead of
// erroring.
func (r *Registry) ResolveHandles(handles []Handle) map[NotificationID]bool {
	out := make(map[NotificationID]bool, len(handles))
	for _, h := range handles {
		if id, ok := r.handleMapping[h]; ok {
			out[id] = true
		}
	}
	return out
}

// TakeHandle removes and returns the ready result for h, deleting both the
// ready entry and the handle mapping. The second return value is false if
// the handle is unknown or not yet ready.
func (r *Registry) TakeHandle(h Handle) (any, bool) {
	id, ok := r.handleMapping[h]
	if !ok {
		return nil, false
	}
	result, ready := r.ready[id]
	if !ready {
		return nil, false
	}
	delete(r.ready, id)
	delete(r.handleMapping, h)
	return result, true
}

// CopyHandle returns the ready result for h without consuming it, leaving
// both the ready entry and the handle mapping intact for a future take.
func (r *Registry) CopyHandle(h Handle) (any, bool) {
	id, ok := r.handleMapping[h]
	if !ok {
		return nil, false
	}
	result, ready := r.ready[id]
	return result, ready
}
