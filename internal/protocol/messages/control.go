package messages

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// StateEntry is one key/value pair seeded into the eager state cache by a
// Start message.
type StateEntry struct {
	Key   []byte
	Value []byte
}

// StartMessage opens an invocation's journal and seeds replay/eager-state
// bookkeeping.
type StartMessage struct {
	ID                               []byte
	DebugID                          string
	KnownEntries                     uint32
	StateMap                         []StateEntry
	PartialState                     bool
	Key                              string
	RetryCountSinceLastStoredEntry   uint32
	DurationSinceLastStoredEntryMS   uint64
}

func (m *StartMessage) MessageType() wire.MessageType { return wire.Start }

func (m *StartMessage) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendBytesField(b, 1, m.ID)
	b = appendStringField(b, 2, m.DebugID)
	b = appendUint32Field(b, 3, m.KnownEntries)
	for _, se := range m.StateMap {
		var inner []byte
		inner = appendBytesField(inner, 1, se.Key)
		inner = appendBytesField(inner, 2, se.Value)
		b = appendMessageField(b, 4, inner)
	}
	b = appendBoolField(b, 5, m.PartialState)
	b = appendStringField(b, 6, m.Key)
	b = appendUint32Field(b, 7, m.RetryCountSinceLastStoredEntry)
	b = appendUint64Field(b, 8, m.DurationSinceLastStoredEntryMS)
	return b, nil
}

// UnmarshalStartMessage decodes a Start message payload.
func UnmarshalStartMessage(data []byte) (*StartMessage, error) {
	m := &StartMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ID = append([]byte(nil), v...)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.DebugID = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.KnownEntries = uint32(v)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			se, err := parseStateEntry(v)
			if err != nil {
				return nil, err
			}
			m.StateMap = append(m.StateMap, se)
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.PartialState = v != 0
			data = data[n:]
		case 6:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Key = v
			data = data[n:]
		case 7:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.RetryCountSinceLastStoredEntry = uint32(v)
			data = data[n:]
		case 8:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.DurationSinceLastStoredEntryMS = v
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

func parseStateEntry(data []byte) (StateEntry, error) {
	var se StateEntry
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return se, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return se, protowire.ParseError(n)
			}
			se.Key = append([]byte(nil), v...)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return se, protowire.ParseError(n)
			}
			se.Value = append([]byte(nil), v...)
			data = data[n:]
		default:
			n, err := skipField(num, typ, data)
			if err != nil {
				return se, err
			}
			data = data[n:]
		}
	}
	return se, nil
}

// SuspensionMessage is sent when the invocation cannot progress without
// waiting on one or more not-yet-completed notifications, split by how each
// one is addressed: completion ids, reserved signal ids, or signal names.
type SuspensionMessage struct {
	WaitingCompletions  []uint32
	WaitingSignals      []uint32
	WaitingNamedSignals []string
}

func (m *SuspensionMessage) MessageType() wire.MessageType { return wire.Suspension }

func (m *SuspensionMessage) MarshalPayload() ([]byte, error) {
	var b []byte
	for _, idx := range m.WaitingCompletions {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(idx))
	}
	for _, idx := range m.WaitingSignals {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(idx))
	}
	for _, name := range m.WaitingNamedSignals {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, name)
	}
	return b, nil
}

// UnmarshalSuspensionMessage decodes a Suspension message payload.
func UnmarshalSuspensionMessage(data []byte) (*SuspensionMessage, error) {
	m := &SuspensionMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.WaitingCompletions = append(m.WaitingCompletions, uint32(v))
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.WaitingSignals = append(m.WaitingSignals, uint32(v))
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.WaitingNamedSignals = append(m.WaitingNamedSignals, v)
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

// ErrorMessage is the fatal, terminal message the VM emits when it cannot
// continue the invocation (spec.md §C.1 error codes).
type ErrorMessage struct {
	Code               uint32
	Message            string
	Description        string
	RelatedEntryIndex  *uint32
	RelatedEntryName   *string
	RelatedEntryType   *uint32
	NextRetryDelayMS   *uint64
}

func (m *ErrorMessage) MessageType() wire.MessageType { return wire.ErrorMessage }

func (m *ErrorMessage) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.Code)
	b = appendStringField(b, 2, m.Message)
	b = appendStringField(b, 3, m.Description)
	if m.RelatedEntryIndex != nil {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.RelatedEntryIndex))
	}
	if m.RelatedEntryName != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, *m.RelatedEntryName)
	}
	if m.RelatedEntryType != nil {
		b = protowire.AppendTag(b, 6, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*m.RelatedEntryType))
	}
	if m.NextRetryDelayMS != nil {
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, *m.NextRetryDelayMS)
	}
	return b, nil
}

// EndMessage closes an invocation's lifecycle successfully.
type EndMessage struct{}

func (m *EndMessage) MessageType() wire.MessageType      { return wire.End }
func (m *EndMessage) MarshalPayload() ([]byte, error)    { return nil, nil }

// EntryAckMessage acknowledges receipt of a RequiresRuntimeAck entry (used
// by the Run command to confirm the orchestrator durably stored the
// proposed result before the handler observes it).
type EntryAckMessage struct {
	EntryIndex uint32
}

func (m *EntryAckMessage) MessageType() wire.MessageType { return wire.EntryAck }

func (m *EntryAckMessage) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.EntryIndex)
	return b, nil
}

// UnmarshalEntryAckMessage decodes an EntryAck message payload.
func UnmarshalEntryAckMessage(data []byte) (*EntryAckMessage, error) {
	m := &EntryAckMessage{}
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
			m.EntryIndex = uint32(v)
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

// ProposeRunCompletionMessage carries the outcome of a Run block back to the
// orchestrator for durable storage, before the corresponding
// RunCompletionNotification is delivered.
type ProposeRunCompletionMessage struct {
	NotificationIndex uint32
	Name              string
	Result            EntryResult
}

func (m *ProposeRunCompletionMessage) MessageType() wire.MessageType {
	return wire.ProposeRunCompletion
}

func (m *ProposeRunCompletionMessage) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint32Field(b, 1, m.NotificationIndex)
	b = appendStringField(b, 12, m.Name)
	b = m.Result.appendTo(b, 0, 14, 15)
	return b, nil
}

// UnmarshalProposeRunCompletionMessage decodes a ProposeRunCompletion
// payload.
func UnmarshalProposeRunCompletionMessage(data []byte) (*ProposeRunCompletionMessage, error) {
	m := &ProposeRunCompletionMessage{}
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
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 14:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Result = EntryResult{Kind: ResultValue, Value: append([]byte(nil), v...)}
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
			m.Result = EntryResult{Kind: ResultFailure, Failure: f}
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
