// Package vmerrors defines the stable numeric error codes the VM exposes to
// the remote orchestrator (see spec §7) and the VMError type used to carry
// them through the journal's sticky error latch.
package vmerrors

import "fmt"

// Code is the stable numeric error code attached to the protocol's Error
// message. Codes below 600 mirror HTTP status semantics; the 57x band is
// specific to this protocol.
type Code uint16

const (
	CodeBadRequest            Code = 400
	CodeUnsupportedMediaType  Code = 415
	CodeInternal              Code = 500
	CodeJournalMismatch       Code = 570
	CodeProtocolViolation     Code = 571
	CodeAwaitingTwoAsyncResults Code = 572
	CodeUnsupportedFeature    Code = 573
)

// VMError is the error type returned from every VM operation. Once a VMError
// has been emitted to the wire it is latched by internal/vm's dispatch loop:
// subsequent calls return the same VMError without re-emitting it.
type VMError struct {
	Code        Code
	Message     string
	Description string
}

func New(code Code, message string) *VMError {
	return &VMError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *VMError {
	return &VMError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *VMError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Description)
	}
	return e.Message
}

// WithDescription attaches additional free-form detail, mirroring the
// original's append_description_for_code builder.
func (e *VMError) WithDescription(description string) *VMError {
	return &VMError{Code: e.Code, Message: e.Message, Description: description}
}

// IsSuspendedError reports whether err represents the non-fatal SUSPENDED
// short-circuit rather than a latched protocol error.
func IsSuspendedError(err error) bool {
	return err == ErrSuspended
}

// CodeOf extracts the numeric code from err, defaulting to CodeInternal for
// errors that are not a *VMError.
func CodeOf(err error) Code {
	if vmErr, ok := err.(*VMError); ok {
		return vmErr.Code
	}
	return CodeInternal
}

// ErrSuspended is a sentinel, not a VMError: reaching a suspension point
// ends the invocation's processing but is not a latched fatal error.
var ErrSuspended = fmt.Errorf("state machine suspended")

// Sentinel errors for every named fatal condition in spec.md §7. Each wraps
// a fixed, stable message so tests and logs can match on them directly.
var (
	ErrMissingContentType = New(CodeUnsupportedMediaType, "Missing content type when invoking")

	ErrUnexpectedInputMessage = New(CodeProtocolViolation, "Expected input message to be entry")

	ErrKnownEntriesIsZero = New(CodeInternal, "Known entries is zero, expected >= 1")

	ErrUnexpectedEntryMessage = New(CodeProtocolViolation, "Expected entry messages only when waiting replay entries")

	ErrUnexpectedNoneRunResult = New(CodeProtocolViolation, "Expected RunEntryMessage to contain a result")

	ErrExpectedCompletionResult = New(CodeProtocolViolation, "The completion message MUST contain a result")

	ErrInsideRun = New(CodeInternal, "A syscall was invoked from within a run operation")

	ErrRunExitWithoutEnter = New(CodeInternal, "Invoked sys_run_exit without invoking sys_run_enter before")

	ErrInputClosedWhileWaitingEntries = New(CodeProtocolViolation,
		"The input was closed while still waiting to receive all the known entries")

	ErrBadCombinatorEntry = New(CodeProtocolViolation,
		"The combinator cannot be replayed. This is most likely caused by non deterministic code.")

	ErrEmptyIdempotencyKey = New(CodeInternal,
		"Trying to execute an idempotent request with an empty idempotency key, this is not supported")
)

// UnavailableEntry is raised when replay expects a buffered entry but the
// replay buffer has already been drained.
func UnavailableEntry(expected fmt.Stringer) *VMError {
	return Newf(CodeJournalMismatch,
		"Expecting entry %s, but the buffered entries were drained already. This is an invalid state", expected)
}

// UnexpectedState is raised when an operation is invoked from an FSM state
// that cannot service it.
func UnexpectedState(state string, event fmt.Stringer) *VMError {
	return Newf(CodeProtocolViolation, "Unexpected state %s when invoking %s", state, event)
}

// EntryMismatch is raised during replay when the live call's entry header
// does not match the header recorded in the replayed entry.
func EntryMismatch(actual, expected fmt.Stringer) *VMError {
	return Newf(CodeJournalMismatch, "Entry %s doesn't match expected entry %s", actual, expected)
}

// AwaitingTwoAsyncResults builds the error for awaiting two async results at
// the same time. Nothing in this module raises it: DoProgress accepts any
// number of handles.
func AwaitingTwoAsyncResults(previous, current uint32) *VMError {
	return Newf(CodeAwaitingTwoAsyncResults,
		"Trying to await two async results at the same time: %d and %d", previous, current)
}

// UnsupportedFeatureForVersion is raised when the negotiated protocol
// version does not implement a feature the handler attempted to use.
func UnsupportedFeatureForVersion(feature, current, minimumRequired string) *VMError {
	return Newf(CodeUnsupportedFeature,
		"Feature %s is not supported by the negotiated protocol version '%s', the minimum required version is '%s'",
		feature, current, minimumRequired)
}
