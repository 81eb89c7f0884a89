// Package messages implements the protobuf payloads carried inside the
// framed messages defined by package wire: the Start/Suspension/Error/End
// control messages, the per-syscall Command messages the VM emits, and the
// CompletionNotification/signal messages the VM consumes.
package messages

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Header is a single user-visible HTTP-like header, carried on input, call
// and one-way-call entries.
type Header struct {
	Key   string
	Value string
}

func appendHeader(b []byte, num protowire.Number, h Header) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	var inner []byte
	inner = appendStringField(inner, 1, h.Key)
	inner = appendStringField(inner, 2, h.Value)
	b = protowire.AppendBytes(b, inner)
	return b
}

func parseHeader(data []byte) (Header, error) {
	var h Header
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return h, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			h.Key = v
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			h.Value = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return h, nil
}

// Failure carries a user-visible error: an invocation's own failure output,
// or the failure outcome of a completable entry.
type Failure struct {
	Code    uint32
	Message string
}

func appendFailure(b []byte, num protowire.Number, f *Failure) []byte {
	if f == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	var inner []byte
	inner = appendUint32Field(inner, 1, f.Code)
	inner = appendStringField(inner, 2, f.Message)
	b = protowire.AppendBytes(b, inner)
	return b
}

func parseFailure(data []byte) (*Failure, error) {
	f := &Failure{}
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
			f.Code = uint32(v)
			data = data[n:]
		case 2:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			f.Message = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return f, nil
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, v)
	return b
}

func appendUint32Field(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v))
	return b
}

func appendUint64Field(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, v)
	return b
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToUint64(v))
	return b
}

func boolToUint64(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

func appendMessageField(b []byte, num protowire.Number, inner []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, inner)
	return b
}

// skipField advances past an unrecognized field during decode.
func skipField(num protowire.Number, typ protowire.Type, data []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, data)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}
