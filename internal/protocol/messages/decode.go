package messages

import (
	"fmt"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// Decode parses a raw frame's payload into its concrete message type. Custom
// entries (type & 0xFC00 == 0xFC00, excluding the well-known
// SignalNotification) are returned unparsed as their raw payload, since this
// VM has no interpretation for them.
func Decode(raw *wire.RawMessage) (any, error) {
	ty := raw.Type()
	switch ty {
	case wire.Start:
		return UnmarshalStartMessage(raw.Payload)
	case wire.Suspension:
		return UnmarshalSuspensionMessage(raw.Payload)
	case wire.ErrorMessage:
		return nil, fmt.Errorf("messages: decoding ErrorMessage frames is not supported (host-to-SDK only)")
	case wire.End:
		return &EndMessage{}, nil
	case wire.EntryAck:
		return UnmarshalEntryAckMessage(raw.Payload)
	case wire.ProposeRunCompletion:
		return UnmarshalProposeRunCompletionMessage(raw.Payload)

	case wire.InputCommand:
		return UnmarshalInputCommand(raw.Payload)
	case wire.OutputCommand:
		return UnmarshalOutputCommand(raw.Payload)
	case wire.GetLazyStateCommand:
		return UnmarshalGetStateCommand(raw.Payload, false)
	case wire.GetEagerStateCommand:
		return UnmarshalGetStateCommand(raw.Payload, true)
	case wire.SetStateCommand:
		return UnmarshalSetStateCommand(raw.Payload)
	case wire.ClearStateCommand:
		return UnmarshalClearStateCommand(raw.Payload)
	case wire.ClearAllStateCommand:
		return UnmarshalClearAllStateCommand(raw.Payload)
	case wire.GetLazyStateKeysCommand:
		return UnmarshalGetStateKeysCommand(raw.Payload, false)
	case wire.GetEagerStateKeysCommand:
		return UnmarshalGetStateKeysCommand(raw.Payload, true)
	case wire.GetPromiseCommand:
		return UnmarshalPromiseCommand(raw.Payload, false)
	case wire.PeekPromiseCommand:
		return UnmarshalPromiseCommand(raw.Payload, true)
	case wire.CompletePromiseCommand:
		return UnmarshalCompletePromiseCommand(raw.Payload)
	case wire.SleepCommand:
		return UnmarshalSleepCommand(raw.Payload)
	case wire.CallCommand:
		return UnmarshalCallCommand(raw.Payload)
	case wire.OneWayCallCommand:
		return UnmarshalOneWayCallCommand(raw.Payload)
	case wire.CompleteAwakeableCommand:
		return UnmarshalCompleteAwakeableCommand(raw.Payload)
	case wire.RunCommand:
		return UnmarshalRunCommand(raw.Payload)
	case wire.SendSignalCommand:
		return UnmarshalSendSignalCommand(raw.Payload)
	case wire.AttachInvocationCommand:
		return UnmarshalAttachInvocationCommand(raw.Payload)
	case wire.GetInvocationOutputCommand:
		return UnmarshalGetInvocationOutputCommand(raw.Payload)

	case wire.SignalNotification:
		return UnmarshalSignalNotification(raw.Payload)
	case wire.GetLazyStateKeysCompletionNotification:
		return UnmarshalStateKeysNotification(raw.Payload)
	case wire.CallInvocationIDCompletionNotification:
		return UnmarshalCallInvocationIDNotification(raw.Payload)

	case wire.GetLazyStateCompletionNotification,
		wire.GetPromiseCompletionNotification,
		wire.PeekPromiseCompletionNotification,
		wire.CompletePromiseCompletionNotification,
		wire.SleepCompletionNotification,
		wire.CallCompletionNotification,
		wire.RunCompletionNotification,
		wire.AttachInvocationCompletionNotification,
		wire.GetInvocationOutputCompletionNotification:
		return UnmarshalCompletionNotification(ty, raw.Payload)

	default:
		if ty.IsCustomEntry() {
			return raw, nil
		}
		return nil, &UnsupportedMessageTypeError{Type: ty}
	}
}

// UnsupportedMessageTypeError is returned by Decode for a message type this
// VM has no decoder for and which does not fall in the custom-entry band.
type UnsupportedMessageTypeError struct {
	Type wire.MessageType
}

func (e *UnsupportedMessageTypeError) Error() string {
	return fmt.Sprintf("messages: no decoder for message type %s", e.Type)
}
