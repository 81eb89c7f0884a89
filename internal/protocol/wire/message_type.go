// Package wire implements the low-level framing of the service invocation
// protocol: an 8-byte big-endian header packing a message type code and a
// payload length, followed by a protobuf-encoded payload. See
// https://github.com/restatedev/service-protocol/blob/main/service-invocation-protocol.md#message-header
package wire

import "fmt"

// MessageType identifies the kind of a framed protocol message. The wire
// encoding packs it into the high 16 bits of the 8-byte header.
type MessageType uint16

// Type-code ranges partitioning the numeric space: core control messages
// occupy the low range, commands occupy 0x0400-0x07FF, notifications occupy
// 0x8000-0xFBFF, and anything with the custom-entry mask set is reserved for
// extensions this VM does not interpret.
const (
	commandEntryMask      uint16 = 0x0400
	notificationEntryMask uint16 = 0x8000
	customEntryMask       uint16 = 0xFC00
)

const (
	Start                MessageType = 0x0000
	Suspension           MessageType = 0x0001
	ErrorMessage         MessageType = 0x0002
	End                  MessageType = 0x0003
	EntryAck             MessageType = 0x0004
	ProposeRunCompletion MessageType = 0x0005

	InputCommand                MessageType = 0x0400
	OutputCommand               MessageType = 0x0401
	GetLazyStateCommand         MessageType = 0x0402
	SetStateCommand             MessageType = 0x0403
	ClearStateCommand           MessageType = 0x0404
	ClearAllStateCommand        MessageType = 0x0405
	GetLazyStateKeysCommand     MessageType = 0x0406
	GetEagerStateCommand        MessageType = 0x0407
	GetEagerStateKeysCommand    MessageType = 0x0408
	GetPromiseCommand           MessageType = 0x0409
	PeekPromiseCommand          MessageType = 0x040A
	CompletePromiseCommand      MessageType = 0x040B
	SleepCommand                MessageType = 0x040C
	CallCommand                 MessageType = 0x040D
	OneWayCallCommand           MessageType = 0x040E
	SendSignalCommand           MessageType = 0x0410
	RunCommand                  MessageType = 0x0411
	AttachInvocationCommand     MessageType = 0x0412
	GetInvocationOutputCommand  MessageType = 0x0413
	CompleteAwakeableCommand    MessageType = 0x0414

	GetLazyStateCompletionNotification     MessageType = 0x8002
	GetLazyStateKeysCompletionNotification MessageType = 0x8006
	GetPromiseCompletionNotification       MessageType = 0x8009
	PeekPromiseCompletionNotification      MessageType = 0x800A
	CompletePromiseCompletionNotification  MessageType = 0x800B
	SleepCompletionNotification            MessageType = 0x800C
	CallCompletionNotification             MessageType = 0x800D
	CallInvocationIDCompletionNotification MessageType = 0x800E
	RunCompletionNotification              MessageType = 0x8011
	AttachInvocationCompletionNotification MessageType = 0x8012
	GetInvocationOutputCompletionNotification MessageType = 0x8013

	SignalNotification MessageType = 0xFBFF
)

var typeNames = map[MessageType]string{
	Start:                Start.baseName(),
	Suspension:           Suspension.baseName(),
	ErrorMessage:         ErrorMessage.baseName(),
	End:                  End.baseName(),
	EntryAck:             EntryAck.baseName(),
	ProposeRunCompletion: ProposeRunCompletion.baseName(),

	InputCommand:               InputCommand.baseName(),
	OutputCommand:              OutputCommand.baseName(),
	GetLazyStateCommand:        GetLazyStateCommand.baseName(),
	SetStateCommand:            SetStateCommand.baseName(),
	ClearStateCommand:          ClearStateCommand.baseName(),
	ClearAllStateCommand:       ClearAllStateCommand.baseName(),
	GetLazyStateKeysCommand:    GetLazyStateKeysCommand.baseName(),
	GetEagerStateCommand:       GetEagerStateCommand.baseName(),
	GetEagerStateKeysCommand:   GetEagerStateKeysCommand.baseName(),
	GetPromiseCommand:          GetPromiseCommand.baseName(),
	PeekPromiseCommand:         PeekPromiseCommand.baseName(),
	CompletePromiseCommand:     CompletePromiseCommand.baseName(),
	SleepCommand:               SleepCommand.baseName(),
	CallCommand:                CallCommand.baseName(),
	OneWayCallCommand:          OneWayCallCommand.baseName(),
	SendSignalCommand:          SendSignalCommand.baseName(),
	RunCommand:                 RunCommand.baseName(),
	AttachInvocationCommand:    AttachInvocationCommand.baseName(),
	GetInvocationOutputCommand: GetInvocationOutputCommand.baseName(),
	CompleteAwakeableCommand:   CompleteAwakeableCommand.baseName(),

	GetLazyStateCompletionNotification:        GetLazyStateCompletionNotification.baseName(),
	GetLazyStateKeysCompletionNotification:     GetLazyStateKeysCompletionNotification.baseName(),
	GetPromiseCompletionNotification:           GetPromiseCompletionNotification.baseName(),
	PeekPromiseCompletionNotification:          PeekPromiseCompletionNotification.baseName(),
	CompletePromiseCompletionNotification:      CompletePromiseCompletionNotification.baseName(),
	SleepCompletionNotification:                SleepCompletionNotification.baseName(),
	CallCompletionNotification:                 CallCompletionNotification.baseName(),
	CallInvocationIDCompletionNotification:     CallInvocationIDCompletionNotification.baseName(),
	RunCompletionNotification:                  RunCompletionNotification.baseName(),
	AttachInvocationCompletionNotification:     AttachInvocationCompletionNotification.baseName(),
	GetInvocationOutputCompletionNotification:  GetInvocationOutputCompletionNotification.baseName(),

	SignalNotification: SignalNotification.baseName(),
}

// IsCommand reports whether ty falls in the command type-code range
// (0x0400-0x07FF).
func (ty MessageType) IsCommand() bool {
	return uint16(ty) >= commandEntryMask && uint16(ty) < notificationEntryMask
}

// IsNotification reports whether ty falls in the notification type-code
// range (0x8000-0xFBFF).
func (ty MessageType) IsNotification() bool {
	return uint16(ty) >= notificationEntryMask && uint16(ty) < customEntryMask
}

// IsCustomEntry reports whether ty carries the reserved custom-entry band
// (>= 0xFC00), meaning this VM does not know how to interpret it.
func (ty MessageType) IsCustomEntry() bool {
	return uint16(ty)&customEntryMask == customEntryMask
}

func (ty MessageType) String() string {
	if name, ok := typeNames[ty]; ok {
		return name
	}
	if ty.IsCustomEntry() {
		return fmt.Sprintf("CustomEntry(0x%04x)", uint16(ty))
	}
	return fmt.Sprintf("UnknownMessageType(0x%04x)", uint16(ty))
}

// baseName exists only so the typeNames table above can be built from the Go
// identifier names without repeating every string literal twice.
func (ty MessageType) baseName() string {
	switch ty {
	case Start:
		return "Start"
	case Suspension:
		return "Suspension"
	case ErrorMessage:
		return "Error"
	case End:
		return "End"
	case EntryAck:
		return "EntryAck"
	case ProposeRunCompletion:
		return "ProposeRunCompletion"
	case InputCommand:
		return "InputCommand"
	case OutputCommand:
		return "OutputCommand"
	case GetLazyStateCommand:
		return "GetLazyStateCommand"
	case SetStateCommand:
		return "SetStateCommand"
	case ClearStateCommand:
		return "ClearStateCommand"
	case ClearAllStateCommand:
		return "ClearAllStateCommand"
	case GetLazyStateKeysCommand:
		return "GetLazyStateKeysCommand"
	case GetEagerStateCommand:
		return "GetEagerStateCommand"
	case GetEagerStateKeysCommand:
		return "GetEagerStateKeysCommand"
	case GetPromiseCommand:
		return "GetPromiseCommand"
	case PeekPromiseCommand:
		return "PeekPromiseCommand"
	case CompletePromiseCommand:
		return "CompletePromiseCommand"
	case SleepCommand:
		return "SleepCommand"
	case CallCommand:
		return "CallCommand"
	case OneWayCallCommand:
		return "OneWayCallCommand"
	case SendSignalCommand:
		return "SendSignalCommand"
	case RunCommand:
		return "RunCommand"
	case AttachInvocationCommand:
		return "AttachInvocationCommand"
	case GetInvocationOutputCommand:
		return "GetInvocationOutputCommand"
	case CompleteAwakeableCommand:
		return "CompleteAwakeableCommand"
	case GetLazyStateCompletionNotification:
		return "GetLazyStateCompletionNotification"
	case GetLazyStateKeysCompletionNotification:
		return "GetLazyStateKeysCompletionNotification"
	case GetPromiseCompletionNotification:
		return "GetPromiseCompletionNotification"
	case PeekPromiseCompletionNotification:
		return "PeekPromiseCompletionNotification"
	case CompletePromiseCompletionNotification:
		return "CompletePromiseCompletionNotification"
	case SleepCompletionNotification:
		return "SleepCompletionNotification"
	case CallCompletionNotification:
		return "CallCompletionNotification"
	case CallInvocationIDCompletionNotification:
		return "CallInvocationIdCompletionNotification"
	case RunCompletionNotification:
		return "RunCompletionNotification"
	case AttachInvocationCompletionNotification:
		return "AttachInvocationCompletionNotification"
	case GetInvocationOutputCompletionNotification:
		return "GetInvocationOutputCompletionNotification"
	case SignalNotification:
		return "SignalNotification"
	default:
		return ""
	}
}
