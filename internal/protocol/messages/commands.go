package messages

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/restatevm/sharedcore/internal/protocol/wire"
)

// Command is a journal entry the VM writes in response to a syscall. Name is
// the optional user-supplied entry name (used for tracing/introspection,
// never for replay matching beyond what HeaderEqual below specifies).
// HeaderEqual implements the journal-mismatch check run during replay: it
// compares only the fields that must stay stable across retries, the same
// subset each concrete message type's generated Rust counterpart compares.
type Command interface {
	wire.Message
	EntryName() string
	HeaderEqual(other Command) bool
}

// Completable is implemented by every Command whose completion the VM tracks
// through a result_completion_id field: the notification registry keys on
// this id, assigned fresh for a new entry or recovered unchanged when the
// same entry resurfaces during replay.
type Completable interface {
	Command
	CompletionID() uint32
	SetCompletionID(id uint32)
}

func (m *GetStateCommand) CompletionID() uint32         { return m.ResultCompletionID }
func (m *GetStateCommand) SetCompletionID(id uint32)     { m.ResultCompletionID = id }
func (m *GetStateKeysCommand) CompletionID() uint32      { return m.ResultCompletionID }
func (m *GetStateKeysCommand) SetCompletionID(id uint32) { m.ResultCompletionID = id }
func (m *PromiseCommand) CompletionID() uint32           { return m.ResultCompletionID }
func (m *PromiseCommand) SetCompletionID(id uint32)      { m.ResultCompletionID = id }
func (m *CompletePromiseCommand) CompletionID() uint32       { return m.ResultCompletionID }
func (m *CompletePromiseCommand) SetCompletionID(id uint32)  { m.ResultCompletionID = id }
func (m *SleepCommand) CompletionID() uint32             { return m.ResultCompletionID }
func (m *SleepCommand) SetCompletionID(id uint32)        { m.ResultCompletionID = id }
func (m *CallCommand) CompletionID() uint32              { return m.ResultCompletionID }
func (m *CallCommand) SetCompletionID(id uint32)         { m.ResultCompletionID = id }
func (m *RunCommand) CompletionID() uint32               { return m.ResultCompletionID }
func (m *RunCommand) SetCompletionID(id uint32)          { m.ResultCompletionID = id }
func (m *AttachInvocationCommand) CompletionID() uint32      { return m.ResultCompletionID }
func (m *AttachInvocationCommand) SetCompletionID(id uint32) { m.ResultCompletionID = id }
func (m *GetInvocationOutputCommand) CompletionID() uint32      { return m.ResultCompletionID }
func (m *GetInvocationOutputCommand) SetCompletionID(id uint32) { m.ResultCompletionID = id }

func headersEqual(a, b []Header) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func appendHeaders(b []byte, num protowire.Number, headers []Header) []byte {
	for _, h := range headers {
		b = appendHeader(b, num, h)
	}
	return b
}

func parseHeadersField(data []byte) (Header, error) { return parseHeader(data) }

// --- InputCommand ---

type InputCommand struct {
	Headers []Header
	Value   []byte
	Name    string
}

func (m *InputCommand) MessageType() wire.MessageType { return wire.InputCommand }
func (m *InputCommand) EntryName() string             { return m.Name }
func (m *InputCommand) HeaderEqual(Command) bool       { return true }

func (m *InputCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendHeaders(b, 1, m.Headers)
	b = appendBytesField(b, 14, m.Value)
	b = appendStringField(b, 12, m.Name)
	return b, nil
}

func UnmarshalInputCommand(data []byte) (*InputCommand, error) {
	m := &InputCommand{}
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
			h, err := parseHeadersField(v)
			if err != nil {
				return nil, err
			}
			m.Headers = append(m.Headers, h)
			data = data[n:]
		case 14:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Value = append([]byte(nil), v...)
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
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

// --- OutputCommand ---

type OutputCommand struct {
	Name   string
	Result EntryResult
}

func (m *OutputCommand) MessageType() wire.MessageType { return wire.OutputCommand }
func (m *OutputCommand) EntryName() string             { return m.Name }
func (m *OutputCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*OutputCommand)
	return ok && other.Name == m.Name
}

func (m *OutputCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 12, m.Name)
	b = m.Result.appendTo(b, 0, 14, 15)
	return b, nil
}

func UnmarshalOutputCommand(data []byte) (*OutputCommand, error) {
	m := &OutputCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 0, 14, 15); matched {
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

// --- SetStateCommand ---

type SetStateCommand struct {
	Key   []byte
	Value []byte
	Name  string
}

func (m *SetStateCommand) MessageType() wire.MessageType { return wire.SetStateCommand }
func (m *SetStateCommand) EntryName() string              { return m.Name }
func (m *SetStateCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*SetStateCommand)
	return ok && bytes.Equal(other.Key, m.Key)
}

func (m *SetStateCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendBytesField(b, 1, m.Key)
	b = appendBytesField(b, 3, m.Value)
	b = appendStringField(b, 12, m.Name)
	return b, nil
}

func UnmarshalSetStateCommand(data []byte) (*SetStateCommand, error) {
	m := &SetStateCommand{}
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
			m.Key = append([]byte(nil), v...)
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Value = append([]byte(nil), v...)
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
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

// --- ClearStateCommand ---

type ClearStateCommand struct {
	Key  []byte
	Name string
}

func (m *ClearStateCommand) MessageType() wire.MessageType { return wire.ClearStateCommand }
func (m *ClearStateCommand) EntryName() string              { return m.Name }
func (m *ClearStateCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*ClearStateCommand)
	return ok && bytes.Equal(other.Key, m.Key)
}

func (m *ClearStateCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendBytesField(b, 1, m.Key)
	b = appendStringField(b, 12, m.Name)
	return b, nil
}

func UnmarshalClearStateCommand(data []byte) (*ClearStateCommand, error) {
	m := &ClearStateCommand{}
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
			m.Key = append([]byte(nil), v...)
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
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

// --- ClearAllStateCommand ---

type ClearAllStateCommand struct {
	Name string
}

func (m *ClearAllStateCommand) MessageType() wire.MessageType { return wire.ClearAllStateCommand }
func (m *ClearAllStateCommand) EntryName() string              { return m.Name }
func (m *ClearAllStateCommand) HeaderEqual(Command) bool        { return true }

func (m *ClearAllStateCommand) MarshalPayload() ([]byte, error) {
	return appendStringField(nil, 12, m.Name), nil
}

func UnmarshalClearAllStateCommand(data []byte) (*ClearAllStateCommand, error) {
	m := &ClearAllStateCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
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

// --- GetLazyStateCommand / GetEagerStateCommand ---

type GetStateCommand struct {
	Eager              bool
	Key                []byte
	Name               string
	ResultCompletionID uint32
}

func (m *GetStateCommand) MessageType() wire.MessageType {
	if m.Eager {
		return wire.GetEagerStateCommand
	}
	return wire.GetLazyStateCommand
}
func (m *GetStateCommand) EntryName() string { return m.Name }
func (m *GetStateCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*GetStateCommand)
	return ok && bytes.Equal(other.Key, m.Key)
}

func (m *GetStateCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendBytesField(b, 1, m.Key)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalGetStateCommand(data []byte, eager bool) (*GetStateCommand, error) {
	m := &GetStateCommand{Eager: eager}
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
			m.Key = append([]byte(nil), v...)
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- GetLazyStateKeysCommand / GetEagerStateKeysCommand ---

type GetStateKeysCommand struct {
	Eager              bool
	Name               string
	ResultCompletionID uint32
}

func (m *GetStateKeysCommand) MessageType() wire.MessageType {
	if m.Eager {
		return wire.GetEagerStateKeysCommand
	}
	return wire.GetLazyStateKeysCommand
}
func (m *GetStateKeysCommand) EntryName() string      { return m.Name }
func (m *GetStateKeysCommand) HeaderEqual(Command) bool { return true }

func (m *GetStateKeysCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalGetStateKeysCommand(data []byte, eager bool) (*GetStateKeysCommand, error) {
	m := &GetStateKeysCommand{Eager: eager}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- GetPromiseCommand / PeekPromiseCommand ---

type PromiseCommand struct {
	Peek               bool
	Key                string
	Name               string
	ResultCompletionID uint32
}

func (m *PromiseCommand) MessageType() wire.MessageType {
	if m.Peek {
		return wire.PeekPromiseCommand
	}
	return wire.GetPromiseCommand
}
func (m *PromiseCommand) EntryName() string { return m.Name }
func (m *PromiseCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*PromiseCommand)
	return ok && other.Key == m.Key && other.Name == m.Name
}

func (m *PromiseCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.Key)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalPromiseCommand(data []byte, peek bool) (*PromiseCommand, error) {
	m := &PromiseCommand{Peek: peek}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Key = v
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- CompletePromiseCommand ---

type CompletePromiseCommand struct {
	Key                string
	Name               string
	Completion         EntryResult // tag 2 value, tag 3 failure (no empty variant)
	ResultCompletionID uint32
}

func (m *CompletePromiseCommand) MessageType() wire.MessageType { return wire.CompletePromiseCommand }
func (m *CompletePromiseCommand) EntryName() string              { return m.Name }
func (m *CompletePromiseCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*CompletePromiseCommand)
	if !ok || other.Key != m.Key || other.Name != m.Name {
		return false
	}
	if other.Completion.Kind != m.Completion.Kind {
		return false
	}
	if m.Completion.Kind == ResultValue {
		return bytes.Equal(other.Completion.Value, m.Completion.Value)
	}
	return true
}

func (m *CompletePromiseCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.Key)
	b = appendStringField(b, 12, m.Name)
	b = m.Completion.appendTo(b, 0, 2, 3)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalCompletePromiseCommand(data []byte) (*CompletePromiseCommand, error) {
	m := &CompletePromiseCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Key = v
			data = data[n:]
			continue
		}
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if num == 13 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 0, 2, 3); matched {
			if err != nil {
				return nil, err
			}
			m.Completion = res
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

// --- SleepCommand ---

type SleepCommand struct {
	WakeUpTimeMS       uint64
	Name               string
	ResultCompletionID uint32
}

func (m *SleepCommand) MessageType() wire.MessageType { return wire.SleepCommand }
func (m *SleepCommand) EntryName() string              { return m.Name }
func (m *SleepCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*SleepCommand)
	return ok && other.Name == m.Name
}

func (m *SleepCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendUint64Field(b, 1, m.WakeUpTimeMS)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalSleepCommand(data []byte) (*SleepCommand, error) {
	m := &SleepCommand{}
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
			m.WakeUpTimeMS = v
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- CallCommand ---

type CallCommand struct {
	ServiceName        string
	HandlerName        string
	Parameter          []byte
	Headers            []Header
	Key                string
	Name               string
	ResultCompletionID uint32
}

func (m *CallCommand) MessageType() wire.MessageType { return wire.CallCommand }
func (m *CallCommand) EntryName() string              { return m.Name }
func (m *CallCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*CallCommand)
	return ok &&
		other.ServiceName == m.ServiceName &&
		other.HandlerName == m.HandlerName &&
		other.Key == m.Key &&
		headersEqual(other.Headers, m.Headers) &&
		bytes.Equal(other.Parameter, m.Parameter) &&
		other.Name == m.Name
}

func (m *CallCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.ServiceName)
	b = appendStringField(b, 2, m.HandlerName)
	b = appendBytesField(b, 3, m.Parameter)
	b = appendHeaders(b, 4, m.Headers)
	b = appendStringField(b, 5, m.Key)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalCallCommand(data []byte) (*CallCommand, error) {
	m := &CallCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ServiceName = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.HandlerName = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Parameter = append([]byte(nil), v...)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			h, err := parseHeadersField(v)
			if err != nil {
				return nil, err
			}
			m.Headers = append(m.Headers, h)
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Key = v
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- OneWayCallCommand ---

type OneWayCallCommand struct {
	ServiceName string
	HandlerName string
	Parameter   []byte
	InvokeTimeMS uint64
	Headers     []Header
	Key         string
	Name        string
}

func (m *OneWayCallCommand) MessageType() wire.MessageType { return wire.OneWayCallCommand }
func (m *OneWayCallCommand) EntryName() string              { return m.Name }
func (m *OneWayCallCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*OneWayCallCommand)
	return ok &&
		other.ServiceName == m.ServiceName &&
		other.HandlerName == m.HandlerName &&
		other.Key == m.Key &&
		headersEqual(other.Headers, m.Headers) &&
		bytes.Equal(other.Parameter, m.Parameter) &&
		other.Name == m.Name
}

func (m *OneWayCallCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.ServiceName)
	b = appendStringField(b, 2, m.HandlerName)
	b = appendBytesField(b, 3, m.Parameter)
	b = appendUint64Field(b, 4, m.InvokeTimeMS)
	b = appendHeaders(b, 5, m.Headers)
	b = appendStringField(b, 6, m.Key)
	b = appendStringField(b, 12, m.Name)
	return b, nil
}

func UnmarshalOneWayCallCommand(data []byte) (*OneWayCallCommand, error) {
	m := &OneWayCallCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ServiceName = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.HandlerName = v
			data = data[n:]
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Parameter = append([]byte(nil), v...)
			data = data[n:]
		case 4:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.InvokeTimeMS = v
			data = data[n:]
		case 5:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			h, err := parseHeadersField(v)
			if err != nil {
				return nil, err
			}
			m.Headers = append(m.Headers, h)
			data = data[n:]
		case 6:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Key = v
			data = data[n:]
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
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

// --- CompleteAwakeableCommand ---

type CompleteAwakeableCommand struct {
	ID     string
	Name   string
	Result EntryResult // tags 14 value, 15 failure
}

func (m *CompleteAwakeableCommand) MessageType() wire.MessageType {
	return wire.CompleteAwakeableCommand
}
func (m *CompleteAwakeableCommand) EntryName() string { return m.Name }
func (m *CompleteAwakeableCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*CompleteAwakeableCommand)
	return ok && other.ID == m.ID
}

func (m *CompleteAwakeableCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.ID)
	b = appendStringField(b, 12, m.Name)
	b = m.Result.appendTo(b, 0, 14, 15)
	return b, nil
}

func UnmarshalCompleteAwakeableCommand(data []byte) (*CompleteAwakeableCommand, error) {
	m := &CompleteAwakeableCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ID = v
			data = data[n:]
			continue
		}
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 0, 14, 15); matched {
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

// --- RunCommand ---

// RunCommand marks the start of a side-effect block. Its durable result is
// reported separately via ProposeRunCompletionMessage once the block's
// closure has executed.
type RunCommand struct {
	Name               string
	ResultCompletionID uint32
}

func (m *RunCommand) MessageType() wire.MessageType { return wire.RunCommand }
func (m *RunCommand) EntryName() string              { return m.Name }
func (m *RunCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*RunCommand)
	return ok && other.Name == m.Name
}

func (m *RunCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalRunCommand(data []byte) (*RunCommand, error) {
	m := &RunCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 12:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
		case 13:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
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

// --- SendSignalCommand ---

type SendSignalCommand struct {
	TargetInvocationID string
	SignalName         string
	Name               string
	Result             EntryResult
}

func (m *SendSignalCommand) MessageType() wire.MessageType { return wire.SendSignalCommand }
func (m *SendSignalCommand) EntryName() string              { return m.Name }
func (m *SendSignalCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*SendSignalCommand)
	return ok && other.TargetInvocationID == m.TargetInvocationID && other.SignalName == m.SignalName
}

func (m *SendSignalCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.TargetInvocationID)
	b = appendStringField(b, 2, m.SignalName)
	b = appendStringField(b, 12, m.Name)
	b = m.Result.appendTo(b, 0, 14, 15)
	return b, nil
}

func UnmarshalSendSignalCommand(data []byte) (*SendSignalCommand, error) {
	m := &SendSignalCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num == 1 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.TargetInvocationID = v
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
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if consumed, res, matched, err := parseResultField(num, typ, data, 0, 14, 15); matched {
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

// --- AttachInvocationCommand / GetInvocationOutputCommand ---

// InvocationTarget identifies an invocation by id, idempotency key, or
// workflow/virtual-object key, mirroring the union the original accepts for
// attach/get-output requests.
type InvocationTarget struct {
	InvocationID   string
	IdempotencyKey string
	Service        string
	Key            string
}

type AttachInvocationCommand struct {
	Target             InvocationTarget
	Name               string
	ResultCompletionID uint32
}

func (m *AttachInvocationCommand) MessageType() wire.MessageType {
	return wire.AttachInvocationCommand
}
func (m *AttachInvocationCommand) EntryName() string { return m.Name }
func (m *AttachInvocationCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*AttachInvocationCommand)
	return ok && other.Target == m.Target
}

func (m *AttachInvocationCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.Target.InvocationID)
	b = appendStringField(b, 2, m.Target.IdempotencyKey)
	b = appendStringField(b, 3, m.Target.Service)
	b = appendStringField(b, 4, m.Target.Key)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func unmarshalInvocationTargetField(num protowire.Number, data []byte, t *InvocationTarget) (int, bool, error) {
	switch num {
	case 1:
		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return 0, true, protowire.ParseError(n)
		}
		t.InvocationID = v
		return n, true, nil
	case 2:
		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return 0, true, protowire.ParseError(n)
		}
		t.IdempotencyKey = v
		return n, true, nil
	case 3:
		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return 0, true, protowire.ParseError(n)
		}
		t.Service = v
		return n, true, nil
	case 4:
		v, n := protowire.ConsumeString(data)
		if n < 0 {
			return 0, true, protowire.ParseError(n)
		}
		t.Key = v
		return n, true, nil
	default:
		return 0, false, nil
	}
}

func UnmarshalAttachInvocationCommand(data []byte) (*AttachInvocationCommand, error) {
	m := &AttachInvocationCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if consumed, matched, err := unmarshalInvocationTargetField(num, data, &m.Target); matched {
			if err != nil {
				return nil, err
			}
			data = data[consumed:]
			continue
		}
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if num == 13 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
			data = data[n:]
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

type GetInvocationOutputCommand struct {
	Target             InvocationTarget
	Name               string
	ResultCompletionID uint32
}

func (m *GetInvocationOutputCommand) MessageType() wire.MessageType {
	return wire.GetInvocationOutputCommand
}
func (m *GetInvocationOutputCommand) EntryName() string { return m.Name }
func (m *GetInvocationOutputCommand) HeaderEqual(o Command) bool {
	other, ok := o.(*GetInvocationOutputCommand)
	return ok && other.Target == m.Target
}

func (m *GetInvocationOutputCommand) MarshalPayload() ([]byte, error) {
	var b []byte
	b = appendStringField(b, 1, m.Target.InvocationID)
	b = appendStringField(b, 2, m.Target.IdempotencyKey)
	b = appendStringField(b, 3, m.Target.Service)
	b = appendStringField(b, 4, m.Target.Key)
	b = appendStringField(b, 12, m.Name)
	b = appendUint32Field(b, 13, m.ResultCompletionID)
	return b, nil
}

func UnmarshalGetInvocationOutputCommand(data []byte) (*GetInvocationOutputCommand, error) {
	m := &GetInvocationOutputCommand{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if consumed, matched, err := unmarshalInvocationTargetField(num, data, &m.Target); matched {
			if err != nil {
				return nil, err
			}
			data = data[consumed:]
			continue
		}
		if num == 12 {
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.Name = v
			data = data[n:]
			continue
		}
		if num == 13 {
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			m.ResultCompletionID = uint32(v)
			data = data[n:]
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
