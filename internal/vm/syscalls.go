package vm

import (
	"time"

	"github.com/restatevm/sharedcore/internal/protocol/messages"
	"github.com/restatevm/sharedcore/internal/vm/asyncresult"
	"github.com/restatevm/sharedcore/internal/vm/eagerstate"
	"github.com/restatevm/sharedcore/internal/vmerrors"
)

// SysInput recovers the invocation's own request: headers, body and
// identity. It is always the very first syscall a handler makes, and its
// entry is always satisfied from replay since the host seeds it before the
// handler ever runs.
func (m *VM) SysInput() (*Input, error) {
	if err := m.checkReady(); err != nil {
		return nil, err
	}
	ic, vmErr := m.popOrWriteInput()
	if vmErr != nil {
		return nil, m.fail(vmErr)
	}
	info := m.journal.StartInfo()
	return &Input{
		InvocationID: info.ID,
		RandomSeed:   computeRandomSeed(m.invocationID),
		Key:          info.Key,
		Headers:      fromMessageHeaders(ic.Headers),
		Body:         ic.Value,
	}, nil
}

func fromMessageHeaders(hs []messages.Header) []Header {
	out := make([]Header, len(hs))
	for i, h := range hs {
		out[i] = Header{Key: h.Key, Value: h.Value}
	}
	return out
}

// SysWriteOutput records the invocation's result. It does not itself end the
// invocation: call SysEnd once the output has been written.
func (m *VM) SysWriteOutput(v Value) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.OutputCommand{Result: resultFromValue(v)}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	return nil
}

// SysEnd closes the invocation's lifecycle after its output has been
// written, transitioning the FSM to its terminal success state.
func (m *VM) SysEnd() error {
	if err := m.checkReady(); err != nil {
		return err
	}
	// Tolerate a handler ending an invocation that already suspended or
	// ended: the transition is idempotent and must not emit a second frame.
	if m.state == StateEnded || m.state == StateSuspended {
		return nil
	}
	payload, encErr := m.encoder.Encode(&messages.EndMessage{})
	if encErr != nil {
		return m.fail(vmerrors.Newf(vmerrors.CodeInternal, "encode End: %v", encErr))
	}
	m.outBuf = append(m.outBuf, payload...)
	m.state = StateEnded
	return nil
}

// --- State ---

func valueFromEagerGet(res eagerstate.GetResult, v []byte) Value {
	if res == eagerstate.Value {
		return Value{Success: v}
	}
	return Value{Success: nil}
}

// SysGetState answers key from the eager cache when it can: a definite hit
// or miss there resolves synchronously with no journal entry at all. A
// cache that might be missing the key (spec.md §4.5's Unknown case) falls
// back to a blocking GetLazyStateCommand.
func (m *VM) SysGetState(key, name string) (NotificationHandle, *Value, error) {
	if err := m.checkReady(); err != nil {
		return 0, nil, err
	}
	if res, v := m.eager.Get(key); res != eagerstate.Unknown {
		val := valueFromEagerGet(res, v)
		return 0, &val, nil
	}
	cmd := &messages.GetStateCommand{Key: []byte(key), Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, nil, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil, nil
}

// SysGetStateKeys resolves to the full key set immediately if the eager
// cache is complete, otherwise via a blocking command.
func (m *VM) SysGetStateKeys(name string) (NotificationHandle, []string, error) {
	if err := m.checkReady(); err != nil {
		return 0, nil, err
	}
	if keys, ok := m.eager.GetKeys(); ok {
		return 0, keys, nil
	}
	cmd := &messages.GetStateKeysCommand{Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, nil, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil, nil
}

// SysSetState durably records key=value. The eager cache is updated locally
// so a subsequent SysGetState in the same invocation observes the write
// without waiting for the orchestrator to acknowledge it.
func (m *VM) SysSetState(key string, value []byte, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.SetStateCommand{Key: []byte(key), Value: value, Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	m.eager.Set(key, value)
	return nil
}

// SysClearState durably deletes key.
func (m *VM) SysClearState(key, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.ClearStateCommand{Key: []byte(key), Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	m.eager.Clear(key)
	return nil
}

// SysClearAllState durably deletes every key associated with the invocation.
func (m *VM) SysClearAllState(name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.ClearAllStateCommand{Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	m.eager.ClearAll()
	return nil
}

// --- Promises (workflow shared state) ---

// SysGetPromise blocks until another invocation (typically a workflow's
// orchestrator) completes the named promise.
func (m *VM) SysGetPromise(key, name string) (NotificationHandle, error) {
	return m.sysPromise(key, name, false)
}

// SysPeekPromise resolves immediately to the promise's current value, which
// may be Empty if nobody has completed it yet.
func (m *VM) SysPeekPromise(key, name string) (NotificationHandle, error) {
	return m.sysPromise(key, name, true)
}

func (m *VM) sysPromise(key, name string, peek bool) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	cmd := &messages.PromiseCommand{Peek: peek, Key: key, Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil
}

// SysCompletePromise durably resolves a previously created promise with
// either a value or a terminal failure.
func (m *VM) SysCompletePromise(key, name string, v Value) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	cmd := &messages.CompletePromiseCommand{Key: key, Name: name, Completion: resultFromValue(v)}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil
}

// --- Sleep ---

// SysSleep schedules the invocation to be woken after d, computing the
// absolute wake-up time at the point the entry is first written so the
// recorded entry replays deterministically.
func (m *VM) SysSleep(d time.Duration, name string) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	cmd := &messages.SleepCommand{WakeUpTimeMS: wakeUpTimeMillis(time.Now(), d), Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil
}

// --- Calls ---

// CallHandle bundles the two NotificationHandles SysCall returns for a
// two-way call: the call's result and its invocation-id side channel.
type CallHandle struct {
	Result       NotificationHandle
	InvocationID NotificationHandle
}

// SysCall invokes another service/handler. The returned Result handle
// resolves to the callee's output; InvocationID resolves first, as soon as
// the orchestrator has accepted the call, carrying the callee's invocation
// id (needed to e.g. cancel it before it completes).
func (m *VM) SysCall(target Target, parameter []byte, name string) (CallHandle, error) {
	if err := m.checkReady(); err != nil {
		return CallHandle{}, err
	}
	// A two-way call consumes two completion slots: the invocation-id side
	// channel is allocated first, so it always sits one id below the call's
	// own result.
	m.journal.NextCompletionID()
	cmd := &messages.CallCommand{
		ServiceName: target.Service,
		HandlerName: target.Handler,
		Parameter:   parameter,
		Headers:     toMessageHeaders(target.Headers),
		Key:         target.Key,
		Name:        name,
	}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return CallHandle{}, m.fail(vmErr)
	}
	result := m.registerCompletable(cmd)
	idNotification := asyncresult.CompletionID(cmd.ResultCompletionID - 1)
	invocationID := m.registry.CreateHandleMapping(idNotification)
	m.pendingCallIDs = append(m.pendingCallIDs, idNotification)
	return CallHandle{Result: result, InvocationID: invocationID}, nil
}

// SysOneWayCall invokes another service/handler without waiting for its
// result, optionally delayed by invokeDelay.
func (m *VM) SysOneWayCall(target Target, parameter []byte, invokeDelay time.Duration, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	var invokeTimeMS uint64
	if invokeDelay > 0 {
		invokeTimeMS = wakeUpTimeMillis(time.Now(), invokeDelay)
	}
	cmd := &messages.OneWayCallCommand{
		ServiceName:  target.Service,
		HandlerName:  target.Handler,
		Parameter:    parameter,
		InvokeTimeMS: invokeTimeMS,
		Headers:      toMessageHeaders(target.Headers),
		Key:          target.Key,
		Name:         name,
	}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	return nil
}

// --- Signals and awakeables ---

// SysCreateSignalHandle registers interest in a named signal addressed to
// this invocation. No journal entry is written: the name itself is the
// rendezvous, and the matching SignalNotification installs into the registry
// whenever the orchestrator delivers it.
func (m *VM) SysCreateSignalHandle(signalName string) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	if m.insideRun {
		return 0, m.fail(vmerrors.ErrInsideRun)
	}
	return m.registry.CreateHandleMapping(asyncresult.SignalNameID(signalName)), nil
}

// SysSendSignal delivers result as a named signal to another invocation.
func (m *VM) SysSendSignal(targetInvocationID, signalName string, v Value, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.SendSignalCommand{
		TargetInvocationID: targetInvocationID,
		SignalName:         signalName,
		Name:               name,
		Result:             resultFromValue(v),
	}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	return nil
}

// SysCreateAwakeable allocates the next completion id and derives its
// externally shareable id from it (spec.md's "Awakeable ids" derivation),
// without writing any journal entry: the id itself is the only thing a
// third party needs to later call SysCompleteAwakeable.
func (m *VM) SysCreateAwakeable() (NotificationHandle, string, error) {
	if err := m.checkReady(); err != nil {
		return 0, "", err
	}
	if m.insideRun {
		return 0, "", m.fail(vmerrors.ErrInsideRun)
	}
	id := m.journal.NextCompletionID()
	h := m.registry.CreateHandleMapping(asyncresult.CompletionID(id))
	return h, awakeableID(m.invocationID, id), nil
}

// SysCompleteAwakeable durably resolves an awakeable identified by its
// externally shared id.
func (m *VM) SysCompleteAwakeable(id string, v Value, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	cmd := &messages.CompleteAwakeableCommand{ID: id, Name: name, Result: resultFromValue(v)}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return m.fail(vmErr)
	}
	return nil
}

// --- Run (side effects) ---

// SysRunEnter begins a side-effect block. If the block was already executed
// in a prior attempt, its durable result is returned immediately and the
// closure must not run again. Otherwise the returned handle is the one
// DoProgress will eventually surface through DoProgressExecuteRun, inviting
// the caller to actually run the closure.
func (m *VM) SysRunEnter(name string) (NotificationHandle, *Value, error) {
	if err := m.checkReady(); err != nil {
		return 0, nil, err
	}
	cmd := &messages.RunCommand{Name: name}
	replayed, vmErr := m.popOrWrite(cmd)
	if vmErr != nil {
		return 0, nil, m.fail(vmErr)
	}
	h := m.registerCompletable(cmd)
	if replayed {
		if result, ready := m.registry.TakeHandle(h); ready {
			v := resultToValue(result)
			return h, &v, nil
		}
	}
	m.runs.InsertRunToExecute(h)
	return h, nil, nil
}

// SysProposeRunCompletion reports the outcome of a run block's closure back
// to the orchestrator for durable storage. The real completion notification
// for h arrives later, asynchronously, the same way any other completable
// entry does.
func (m *VM) SysProposeRunCompletion(h NotificationHandle, exit RunExitResult, name string) error {
	if err := m.checkReady(); err != nil {
		return err
	}
	id, ok := m.registry.LookupHandle(h)
	if !ok {
		return m.fail(vmerrors.ErrRunExitWithoutEnter)
	}
	msg := &messages.ProposeRunCompletionMessage{NotificationIndex: id.Value, Name: name}
	switch {
	case exit.Value != nil:
		msg.Result = resultFromValue(*exit.Value)
	case exit.RetryAfter != nil:
		msg.Result = messages.EntryResult{Kind: messages.ResultFailure, Failure: &messages.Failure{
			Code:    uint32(vmerrors.CodeInternal),
			Message: exit.RetryAfter.Message,
		}}
	default:
		msg.Result = messages.EntryResult{Kind: messages.ResultEmpty}
	}
	payload, encErr := m.encoder.Encode(msg)
	if encErr != nil {
		return m.fail(vmerrors.Newf(vmerrors.CodeInternal, "encode ProposeRunCompletion: %v", encErr))
	}
	m.outBuf = append(m.outBuf, payload...)
	m.runs.NotifyExecuted(h)
	return nil
}

// --- Attach / output of other invocations ---

// InvocationTargetCommand mirrors messages.InvocationTarget at the public
// API boundary so callers outside internal/protocol never import it
// directly.
type InvocationTargetCommand struct {
	InvocationID   string
	IdempotencyKey string
	Service        string
	Key            string
}

func (t InvocationTargetCommand) toMessages() messages.InvocationTarget {
	return messages.InvocationTarget{
		InvocationID:   t.InvocationID,
		IdempotencyKey: t.IdempotencyKey,
		Service:        t.Service,
		Key:            t.Key,
	}
}

// SysAttachInvocation blocks until the targeted invocation completes,
// returning its eventual output.
func (m *VM) SysAttachInvocation(target InvocationTargetCommand, name string) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	cmd := &messages.AttachInvocationCommand{Target: target.toMessages(), Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil
}

// SysGetInvocationOutput resolves to the targeted invocation's output if it
// has already completed, without blocking the caller the way Attach does.
func (m *VM) SysGetInvocationOutput(target InvocationTargetCommand, name string) (NotificationHandle, error) {
	if err := m.checkReady(); err != nil {
		return 0, err
	}
	cmd := &messages.GetInvocationOutputCommand{Target: target.toMessages(), Name: name}
	if _, vmErr := m.popOrWrite(cmd); vmErr != nil {
		return 0, m.fail(vmErr)
	}
	return m.registerCompletable(cmd), nil
}

// --- Cancellation ---

// SysCancel delivers a cancellation signal to a running invocation.
func (m *VM) SysCancel(invocationID, name string) error {
	return m.SysSendSignal(invocationID, CancelSignalName, Value{}, name)
}

// --- Notification retrieval ---

// IsCompleted reports whether h's notification result has already arrived,
// without consuming it.
func (m *VM) IsCompleted(h NotificationHandle) bool {
	return m.registry.IsHandleCompleted(h)
}

// TakeNotification consumes and returns the result registered for h. The
// second return value is false if h's notification has not resolved yet.
func (m *VM) TakeNotification(h NotificationHandle) (Value, bool, error) {
	if err := m.checkReady(); err != nil {
		return Value{}, false, err
	}
	result, ok := m.registry.TakeHandle(h)
	if !ok {
		return Value{}, false, nil
	}
	return resultToValue(result), true, nil
}

// TakeStateKeysNotification consumes and returns the key set registered
// for h by a prior SysGetStateKeys call.
func (m *VM) TakeStateKeysNotification(h NotificationHandle) ([]string, bool, error) {
	if err := m.checkReady(); err != nil {
		return nil, false, err
	}
	result, ok := m.registry.TakeHandle(h)
	if !ok {
		return nil, false, nil
	}
	n, ok := result.(*messages.StateKeysNotification)
	if !ok {
		return nil, false, m.fail(vmerrors.ErrExpectedCompletionResult)
	}
	keys := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		keys[i] = string(k)
	}
	return keys, true, nil
}

// TakeCallInvocationIDNotification consumes and returns the invocation id
// registered for h by a prior SysCall's CallHandle.InvocationID.
func (m *VM) TakeCallInvocationIDNotification(h NotificationHandle) (string, bool, error) {
	if err := m.checkReady(); err != nil {
		return "", false, err
	}
	result, ok := m.registry.TakeHandle(h)
	if !ok {
		return "", false, nil
	}
	n, ok := result.(*messages.CallInvocationIDNotification)
	if !ok {
		return "", false, m.fail(vmerrors.ErrExpectedCompletionResult)
	}
	return n.InvocationID, true, nil
}

func resultToValue(result any) Value {
	switch v := result.(type) {
	case *messages.CompletionNotification:
		return valueFromResult(v.Result)
	case *messages.SignalNotification:
		return valueFromResult(v.Result)
	default:
		return Value{}
	}
}

func (m *VM) registerCompletable(cmd messages.Completable) NotificationHandle {
	return m.registry.CreateHandleMapping(asyncresult.CompletionID(cmd.CompletionID()))
}
