package wire

import "fmt"

// UnknownMessageTypeError describes a header whose high 16 bits do not name
// a recognized message type and do not carry the custom-entry mask.
// UnpackHeader and Decoder accept any type code and never return it;
// messages.Decode reports unknown types as UnsupportedMessageTypeError.
type UnknownMessageTypeError struct {
	Code uint16
}

func (e *UnknownMessageTypeError) Error() string {
	return fmt.Sprintf("unknown protocol message code 0x%04x", e.Code)
}

// MessageHeader is the 8-byte frame header preceding every message payload:
// the high 16 bits carry the message type, the low 32 bits carry the
// payload length in bytes.
type MessageHeader struct {
	Type   MessageType
	Length uint32
}

// NewHeader constructs a header for a known message type and payload length.
func NewHeader(ty MessageType, length uint32) MessageHeader {
	return MessageHeader{Type: ty, Length: length}
}

// Pack serializes the header to its 8-byte big-endian wire form.
func (h MessageHeader) Pack() uint64 {
	return (uint64(h.Type) << 48) | uint64(h.Length)
}

// UnpackHeader decodes an 8-byte wire header. It does not reject unknown
// message type codes outside the custom-entry band; callers that need to
// distinguish a truly unrecognized code should check IsCustomEntry/the
// returned type's name.
func UnpackHeader(raw uint64) MessageHeader {
	ty := MessageType(raw >> 48)
	length := uint32(raw)
	return MessageHeader{Type: ty, Length: length}
}

// FrameLength is the number of payload bytes this header's message carries.
func (h MessageHeader) FrameLength() uint32 {
	return h.Length
}
