package messages

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// CompletionNotification is the generic {notification_id, result} shape
// every non-signal notification in the protocol shares: it resolves a
// previously issued completable command, identified by the notification
// index allocated when the command was written to the journal.
type CompletionNotification struct {
	Type              wire.MessageType
	NotificationIndex uint32
	Result            EntryResult
}

func (m *CompletionNotification) MessageType() wire.MessageType { return m.Type }

func (m *CompletionNotification) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.NotificationIndex)
	b = m.Result.appendTo(b, 13, 14, 15)
	return b, nil
}

// UnmarshalCompletionNotification decodes a generic completion payload,
// tagging the result with the frame's own message type.
func UnmarshalCompletionNotification(ty wire.MessageType, data []byte) (*CompletionNotification, error) {
	m := &CompletionNotification{Type: ty}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.NotificationIndex = uint32(v)
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 13, 14, 15); matched {
			if err != nil {
				return nil, err
			}
			m.Result = res
			data = data[consumed:]
			continue
		}
		n, err := skipField(num, typ, data)
		if err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return m, nil
}

// StateKeysNotification completes a GetLazyStateKeys/GetEagerStateKeys
// command with either the full key set or a failure.
type StateKeysNotification struct {
	Eager             bool
	NotificationIndex uint32
	Keys              [][]byte
	Failure           *Failure
}

func (m *StateKeysNotification) MessageType() wire.MessageType {
	// Eager and lazy state-keys commands resolve through the same
	// notification shape on the wire; only the command side distinguishes
	// eager from lazy.
	return wire.GetLazyStateKeysCompletionNotification
}

func (m *StateKeysNotification) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.NotificationIndex)
	if len(m.Keys) > 0 {
		var inner []byte
		for _, k := range m.Keys {
			inner = appendBytesField(inner, 1, k)
		}
		b = appendMessageField(b, 14, inner)
	}
	b = appendFailure(b, 15, m.Failure)
	return b, nil
}

// UnmarshalStateKeysNotification decodes a state-keys completion payload.
// The wire shape does not distinguish eager from lazy, so the returned
// notification's Eager field is left false.
func UnmarshalStateKeysNotification(data []byte) (*StateKeysNotification, error) {
	m := &StateKeysNotification{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.NotificationIndex = uint32(v)
			data = data[n:]
		case 14:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			inner := v
			for len(inner) > 0 {
				knum, ktyp, kn := protowire.ConsumeTag(inner)
				if kn < 0 {
					return nil, protowire.ParseError(kn)
				}
				inner = inner[kn:]
				if knum == 1 {
					kv, kn := protowire.ConsumeBytes(inner)
					if kn < 0 {
						return nil, protowire.ParseError(kn)
					}
					m.Keys = append(m.Keys, append([]byte(nil), kv...))
					inner = inner[kn:]
					continue
				}
				kn, err := skipField(knum, ktyp, inner)
				if err != nil {
					return nil, err
				}
				inner = inner[kn:]
			}
			data = data[n:]
		case 15:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f, err := parseFailure(v)
			if err != nil {
				return nil, err
			}
			m.Failure = f
			data = data[n:]
		default:
			n, err := skipField(num, typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return m, nil
}

// CallInvocationIDNotification is the side-channel notification delivering
// the callee's invocation id as soon as a two-way Call has been accepted,
// ahead of the eventual CallCompletionNotification carrying its result.
type CallInvocationIDNotification struct {
	NotificationIndex uint32
	InvocationID      string
}

func (m *CallInvocationIDNotification) MessageType() wire.MessageType {
	return wire.CallInvocationIDCompletionNotification
}

func (m *CallInvocationIDNotification) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.NotificationIndex)
	b = appendStringField(b, 2, m.InvocationID)
	return b, nil
}

// UnmarshalCallInvocationIDNotification decodes a call-invocation-id
// side-channel notification payload.
func UnmarshalCallInvocationIDNotification(data []byte) (*CallInvocationIDNotification, error) {
	m := &CallInvocationIDNotification{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.NotificationIndex = uint32(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.InvocationID = v
			data = data[n:]
		default:
			n, err := skipField(num, typ, data)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return m, nil
}

// SignalNotification carries an out-of-band signal (including the
// well-known cancel signal) rather than resolving a specific command. It is
// addressed either by a reserved numeric id or by a user-chosen name; the
// two are a oneof on the wire, with SignalName taking precedence when set.
type SignalNotification struct {
	SignalID   uint32
	SignalName string
	Result     EntryResult
}

func (m *SignalNotification) MessageType() wire.MessageType { return wire.SignalNotification }

func (m *SignalNotification) MarshalPayload() ([]byte, error) {
	var b []byte
	if m.SignalName != "" {
		b = appendStringField(b, 2, m.SignalName)
	} else {
		b = appendUint32Field(b, 1, m.SignalID)
	}
	b = m.Result.appendTo(b, 13, 14, 15)
	return b, nil
}

// UnmarshalSignalNotification decodes a signal notification payload.
func UnmarshalSignalNotification(data []byte) (*SignalNotification, error) {
	m := &SignalNotification{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.SignalID = uint32(v)
			data = data[n:]
			continue
		}
		if num == 2 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.SignalName = v
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 13, 14, 15); matched {
			if err != nil {
				return nil, err
			}
			m.Result = res
			data = data[consumed:]
			continue
		}
		n, err := skipField(num, typ, data)
		if err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return m, nil
}
