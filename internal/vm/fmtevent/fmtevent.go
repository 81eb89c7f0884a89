// Package fmtevent turns the protocol's wire-level event identifiers into
// the human-readable phrases that show up in error messages and traces
// ("get state", "one way call/send", ...), with a single pluggable override
// point for hosts that want their own vocabulary.
package fmtevent

import (
	"fmt"
	"sync"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// Formatter supplies the human phrase for each event kind the VM reports.
// A host installing its own Formatter implements all three methods; the
// default formatter is not exported.
type Formatter interface {
	FormatMessageType(ty wire.MessageType) string
	FormatDoProgress() string
	FormatSysEnd() string
}

type defaultFormatter struct{}

func (defaultFormatter) FormatMessageType(ty wire.MessageType) string {
	if phrase, ok := phrases[ty]; ok {
		return phrase
	}
	return ty.String()
}

func (defaultFormatter) FormatDoProgress() string { return "await" }
func (defaultFormatter) FormatSysEnd() string     { return "end invocation" }

var phrases = map[wire.MessageType]string{
	wire.InputCommand:               "handler input",
	wire.OutputCommand:               "handler return",
	wire.GetLazyStateCommand:        "get state",
	wire.GetEagerStateCommand:       "get state",
	wire.GetLazyStateKeysCommand:    "get state keys",
	wire.GetEagerStateKeysCommand:   "get state keys",
	wire.SetStateCommand:            "set state",
	wire.ClearStateCommand:          "clear state",
	wire.ClearAllStateCommand:       "clear all state",
	wire.GetPromiseCommand:          "get promise",
	wire.PeekPromiseCommand:         "peek promise",
	wire.CompletePromiseCommand:     "complete promise",
	wire.SleepCommand:               "sleep",
	wire.CallCommand:                "call",
	wire.OneWayCallCommand:          "one way call/send",
	wire.SendSignalCommand:          "send signal",
	wire.RunCommand:                 "run",
	wire.AttachInvocationCommand:    "attach invocation",
	wire.GetInvocationOutputCommand: "get invocation output",
	wire.CompleteAwakeableCommand:   "complete awakeable",
}

var (
	mu      sync.Mutex
	current Formatter = defaultFormatter{}
	isSet   bool
)

// SetFormatter installs f as the process-wide event formatter. It may only
// be called once; a second call panics, mirroring the original crate's
// set_error_formatter contract of a single, early-process override.
func SetFormatter(f Formatter) {
	mu.Lock()
	defer mu.Unlock()
	if isSet {
		panic("fmtevent: formatter already set")
	}
	current = f
	isSet = true
}

func get() Formatter {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// MessageType returns the human phrase for a wire message type, e.g. "get
// state" for both GetLazyStateCommand and GetEagerStateCommand.
func MessageType(ty wire.MessageType) string { return get().FormatMessageType(ty) }

// DoProgress names the do_progress operation itself, for error messages
// raised before any specific command has been identified.
func DoProgress() string { return get().FormatDoProgress() }

// SysEnd names the end-of-invocation operation.
func SysEnd() string { return get().FormatSysEnd() }

// Stringer adapts any of the above into a fmt.Stringer, the shape
// internal/vmerrors's builder functions expect.
type Stringer struct{ s string }

func (s Stringer) String() string { return s.s }

// Of wraps a formatted phrase as a fmt.Stringer.
func Of(phrase string) fmt.Stringer { return Stringer{s: phrase} }
