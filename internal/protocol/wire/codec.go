package wire

import (
	"encoding/binary"
	"fmt"
)

// Message is anything that can be framed onto the wire: a type code plus a
// protobuf-encoded payload.
type Message interface {
	MessageType() MessageType
	MarshalPayload() ([]byte, error)
}

// Encoder serializes Messages into framed bytes: an 8-byte header followed
// by the payload. It is stateless; a single Encoder value can be shared
// across goroutines.
type Encoder struct {
	version Version
}

// NewEncoder returns an Encoder for the given negotiated protocol version.
func NewEncoder(version Version) *Encoder {
	return &Encoder{version: version}
}

// Encode serializes msg to its complete framed wire representation.
func (e *Encoder) Encode(msg Message) ([]byte, error) {
	payload, err := msg.MarshalPayload()
	if err != nil {
		return nil, fmt.Errorf("encode message %s: %w", msg.MessageType(), err)
	}

	header := NewHeader(msg.MessageType(), uint32(len(payload)))
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint64(buf[:8], header.Pack())
	copy(buf[8:], payload)
	return buf, nil
}

// RawMessage is a message whose header has been parsed but whose payload has
// not yet been decoded into a concrete Go type.
type RawMessage struct {
	Header  MessageHeader
	Payload []byte
}

// Type returns the message type carried by the frame header.
func (m RawMessage) Type() MessageType {
	return m.Header.Type
}

// UnexpectedMessageTypeError describes a raw frame whose type does not match
// the type a caller asked to decode. No function in this package returns it.
type UnexpectedMessageTypeError struct {
	Expected, Actual MessageType
}

func (e *UnexpectedMessageTypeError) Error() string {
	return fmt.Sprintf("expected message type %s but was %s", e.Expected, e.Actual)
}

// decoderState mirrors the two-phase framing loop: a header is 8 fixed
// bytes, then a payload of the length that header announced.
type decoderState int

const (
	stateWaitingHeader decoderState = iota
	stateWaitingPayload
)

// Decoder incrementally reassembles framed messages from a byte stream that
// may be delivered in arbitrarily small chunks (e.g. across HTTP/2 DATA
// frames). Push appends a chunk to the internal buffer without blocking;
// each ConsumeNext call returns at most one complete frame, copying its
// payload out of that buffer.
type Decoder struct {
	version Version
	buf     []byte
	state   decoderState
	pending MessageHeader
}

// NewDecoder returns a Decoder for the given negotiated protocol version.
func NewDecoder(version Version) *Decoder {
	return &Decoder{version: version, state: stateWaitingHeader}
}

// Push appends a newly received chunk to the internal buffer.
func (d *Decoder) Push(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	d.buf = append(d.buf, chunk...)
}

func (d *Decoder) needsBytes() int {
	switch d.state {
	case stateWaitingHeader:
		return 8
	case stateWaitingPayload:
		return int(d.pending.FrameLength())
	default:
		return 0
	}
}

// ConsumeNext returns the next fully buffered message, or (nil, nil) if not
// enough bytes have been pushed yet to complete one.
func (d *Decoder) ConsumeNext() (*RawMessage, error) {
	for {
		if len(d.buf) < d.needsBytes() {
			return nil, nil
		}

		switch d.state {
		case stateWaitingHeader:
			raw := binary.BigEndian.Uint64(d.buf[:8])
			d.buf = d.buf[8:]
			d.pending = UnpackHeader(raw)
			d.state = stateWaitingPayload
		case stateWaitingPayload:
			n := int(d.pending.FrameLength())
			payload := make([]byte, n)
			copy(payload, d.buf[:n])
			d.buf = d.buf[n:]
			msg := &RawMessage{Header: d.pending, Payload: payload}
			d.state = stateWaitingHeader
			return msg, nil
		}
	}
}
