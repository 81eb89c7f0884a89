package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for invocation/VM spans, following the teacher's
// protocol-agnostic attribute naming, rebased onto this protocol's own
// vocabulary.
const (
	AttrInvocationID = "restate.invocation.id"
	AttrDebugID       = "restate.invocation.debug_id"
	AttrState         = "restate.vm.state"
	AttrEntryType     = "restate.vm.entry_type"
	AttrEntryName     = "restate.vm.entry_name"
	AttrSyscall       = "restate.vm.syscall"
	AttrDoProgress    = "restate.vm.do_progress_outcome"
	AttrErrorCode     = "restate.vm.error_code"
	AttrRetryCount    = "restate.retry_count"
)

// InvocationID returns an attribute for the invocation id.
func InvocationID(id string) attribute.KeyValue { return attribute.String(AttrInvocationID, id) }

// DebugID returns an attribute for the invocation's debug id.
func DebugID(id string) attribute.KeyValue { return attribute.String(AttrDebugID, id) }

// State returns an attribute for the VM's current FSM state name.
func State(s string) attribute.KeyValue { return attribute.String(AttrState, s) }

// Syscall returns an attribute naming the syscall a span covers.
func Syscall(name string) attribute.KeyValue { return attribute.String(AttrSyscall, name) }

// DoProgressOutcome returns an attribute naming a DoProgress decision.
func DoProgressOutcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrDoProgress, outcome)
}

// ErrorCode returns an attribute for a latched VMError's numeric code.
func ErrorCode(code uint16) attribute.KeyValue { return attribute.Int64(AttrErrorCode, int64(code)) }

// StartInvocationSpan starts the root span covering one invocation attempt.
func StartInvocationSpan(ctx context.Context, invocationID, debugID string) (context.Context, trace.Span) {
	return StartSpan(ctx, "restatevm.invocation",
		trace.WithAttributes(InvocationID(invocationID), DebugID(debugID)))
}

// StartSyscallSpan starts a child span covering one syscall dispatch.
func StartSyscallSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return StartSpan(ctx, "restatevm.syscall."+name, trace.WithAttributes(Syscall(name)))
}

// StartDoProgressSpan starts a child span covering one DoProgress call.
func StartDoProgressSpan(ctx context.Context) (context.Context, trace.Span) {
	return StartSpan(ctx, "restatevm.do_progress")
}
