package hostserver

import (
	"context"

	"github.com/restatevm/sharedcore/internal/vm"
)

// Handler is user code driving one invocation's VM: it issues syscalls
// against v and returns once the invocation has reached a terminal state
// (Ended/Errored) or suspended. What actual handlers do is entirely outside
// this protocol's scope (spec.md Non-goals: "reimplementing the runtime");
// Handler is the seam internal/hostserver exposes so a language-SDK runtime
// can plug its own dispatcher in without this package knowing anything
// about it.
type Handler interface {
	Handle(ctx context.Context, v *vm.VM) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, v *vm.VM) error

func (f HandlerFunc) Handle(ctx context.Context, v *vm.VM) error { return f(ctx, v) }

// EchoHandler is the local test harness described in SPEC_FULL.md's
// domain-stack table: it runs the spec's own worked example (§8 scenario
// 1) - sys_input, sys_write_output, sys_end - so cmd/restatevm's serve
// command has something to drive end to end without depending on a real
// language SDK.
type EchoHandler struct{}

func (EchoHandler) Handle(ctx context.Context, v *vm.VM) error {
	input, err := v.SysInput()
	if err != nil {
		return err
	}
	if err := v.SysWriteOutput(vm.Value{Success: input.Body}); err != nil {
		return err
	}
	return v.SysEnd()
}
