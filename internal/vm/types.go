// Package vm implements the durable-execution state machine shared by every
// language SDK built on this protocol (spec.md): a per-invocation journal
// that turns a sequence of syscalls into framed protocol messages, replays
// them deterministically against a previously recorded journal on retry, and
// cooperatively schedules blocking operations through DoProgress.
//
// The VM is a pure state machine: it has no knowledge of HTTP or goroutines,
// and reads the wall clock only to turn SysSleep and SysOneWayCall delays into
// absolute times. internal/hostserver
// is the thing that owns a socket and drives a VM from it.
package vm

import (
	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/retry"
	"github.com/restatevm/sharedcore/internal/vm/asyncresult"
)

// Value is a user-visible result: either a success payload or a terminal
// failure, the shape almost every completable syscall resolves to.
type Value struct {
	Failure *TerminalFailure
	Success []byte
}

// TerminalFailure is a user-observable error attached to an invocation's
// output or to a completed syscall, as opposed to a VMError which is a
// protocol-level fault the host never hands to user code.
type TerminalFailure struct {
	Code    uint32
	Message string
}

func valueFromResult(r messages.EntryResult) Value {
	switch r.Kind {
	case messages.ResultFailure:
		return Value{Failure: &TerminalFailure{Code: r.Failure.Code, Message: r.Failure.Message}}
	case messages.ResultValue:
		return Value{Success: r.Value}
	default:
		return Value{Success: nil}
	}
}

func resultFromValue(v Value) messages.EntryResult {
	if v.Failure != nil {
		return messages.EntryResult{Kind: messages.ResultFailure, Failure: &messages.Failure{Code: v.Failure.Code, Message: v.Failure.Message}}
	}
	return messages.EntryResult{Kind: messages.ResultValue, Value: v.Success}
}

// Target names the callee of a Call or OneWayCall: a service/handler pair,
// optionally scoped to a virtual object or workflow key. IdempotencyKey is
// not written into either command.
type Target struct {
	Service        string
	Handler        string
	Key            string
	IdempotencyKey string
	Headers        []Header
}

// Header is a user-visible request/response header.
type Header struct {
	Key   string
	Value string
}

func toMessageHeaders(hs []Header) []messages.Header {
	out := make([]messages.Header, len(hs))
	for i, h := range hs {
		out[i] = messages.Header{Key: h.Key, Value: h.Value}
	}
	return out
}

// Input is the decoded invocation payload handed to user code once the VM
// reaches the Processing state: the request headers and body the caller
// supplied, plus the invocation identity the Start message carried.
type Input struct {
	InvocationID string
	// RandomSeed is derived deterministically from the invocation id, so
	// handler-side pseudo-randomness replays identically across attempts.
	RandomSeed uint64
	Key        string
	Headers    []Header
	Body       []byte
}

// RunExitResult is what user code reports back from a run block: either it
// produced a value/failure, or it wants the host to retry the block
// according to the supplied policy.
type RunExitResult struct {
	Value      *Value
	RetryAfter *RetryError
}

// RetryError signals that a run block failed in a retriable way; the VM
// reports it to the orchestrator without terminating the invocation, and the
// orchestrator's retry policy (spec.md §C.1) decides what happens next.
type RetryError struct {
	Message     string
	Description string
}

// AttachInvocationTarget identifies the invocation an attach/get-output
// syscall targets: by id, by idempotency key, or by workflow/virtual-object
// key.
type AttachInvocationTarget struct {
	InvocationID   string
	IdempotencyKey *IdempotencyKeyTarget
	WorkflowKey    *WorkflowKeyTarget
}

type IdempotencyKeyTarget struct {
	Service string
	Handler string
	Key     string
}

type WorkflowKeyTarget struct {
	Service string
	Key     string
}

// TakeOutputResult is the outcome of draining the VM's pending output
// buffer: either more framed bytes are ready, or the invocation has reached
// a point (Suspended/Ended) where no more will ever be produced.
type TakeOutputResult struct {
	Buffer []byte
	Closed bool
}

// ImplicitCancellationOption controls whether the VM automatically
// propagates cancellation of the current invocation to any in-flight calls
// it has made, per spec.md's redesign of the original's compile-time-only
// behavior into a runtime option.
type ImplicitCancellationOption int

const (
	// ImplicitCancellationEnabled propagates a received cancel signal to
	// every child invocation started by a two-way call, then surfaces
	// DoProgressCancelSignalReceived once every such call's invocation id is
	// known and has been sent the signal. Awakeables are not signalled.
	ImplicitCancellationEnabled ImplicitCancellationOption = iota
	// ImplicitCancellationDisabled surfaces the cancel signal to the
	// handler directly via the well-known handle without any automatic
	// propagation.
	ImplicitCancellationDisabled
)

// Options configures a VM for the lifetime of one invocation.
type Options struct {
	ImplicitCancellation ImplicitCancellationOption

	// RetryPolicy, when set, is evaluated against the current entry's
	// observed retry count/duration the moment a fatal error is latched, so
	// its NextRetryDelay can be forwarded to the orchestrator in the Error
	// message's next_retry_delay_ms field (spec.md §6, §C.1). Left nil, the
	// VM never populates that field - the host is then relying on the
	// orchestrator's own retry-policy configuration entirely.
	RetryPolicy *retry.Policy
}

// DoProgressResponse is the outcome of a DoProgress call: the decision table
// spec.md's do_progress section describes, translated into a Go sum type via
// the Kind discriminator.
type DoProgressResponse struct {
	Kind DoProgressKind

	// AnyCompleted is non-empty when Kind == DoProgressAnyCompleted.
	AnyCompleted []NotificationHandle

	// ExecuteRun is set when Kind == DoProgressExecuteRun.
	ExecuteRun NotificationHandle

	// Suspended carries the reason the invocation is ending this round,
	// set when Kind == DoProgressSuspended.
	Suspended error
}

type DoProgressKind int

const (
	DoProgressAnyCompleted DoProgressKind = iota
	DoProgressReadFromInput
	DoProgressExecuteRun
	DoProgressWaitingPendingRun
	DoProgressCancelSignalReceived
	DoProgressSuspended
)

// NotificationHandle is the opaque token returned from every syscall that
// may block, and passed back into DoProgress/TakeNotification to observe its
// outcome.
type NotificationHandle = asyncresult.Handle

// CancelNotificationHandle is the well-known handle pre-registered for the
// implicit cancellation signal (spec.md §4.4).
const CancelNotificationHandle = asyncresult.CancelHandle

// CancelSignalName is the signal name this VM propagates to every known
// child invocation once it has itself received a cancellation (spec.md §8
// scenario 4: "VM emits SendSignal{target=\"my-id\", signal=CANCEL}").
const CancelSignalName = "cancel"

// SignalID identifies a caller-defined signal the invocation can be
// asked to both emit and receive (spec.md §C.3).
type SignalID = uint32
