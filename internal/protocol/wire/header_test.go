package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderRoundtrip(t *testing.T) {
	cases := []struct {
		name   string
		header MessageHeader
	}{
		{"get_state_empty", NewHeader(GetLazyStateCommand, 0)},
		{"get_state_with_length", NewHeader(GetLazyStateCommand, 22)},
		{"custom_entry", NewHeader(MessageType(0xFC01), 10341)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serialized := tc.header.Pack()
			got := UnpackHeader(serialized)
			assert.Equal(t, tc.header.Type, got.Type)
			assert.Equal(t, tc.header.Length, got.Length)
		})
	}
}

func TestMessageTypeRanges(t *testing.T) {
	assert.True(t, InputCommand.IsCommand())
	assert.False(t, InputCommand.IsNotification())

	assert.True(t, GetLazyStateCompletionNotification.IsNotification())
	assert.False(t, GetLazyStateCompletionNotification.IsCommand())

	assert.True(t, SignalNotification.IsNotification())
	assert.False(t, SignalNotification.IsCustomEntry())
	assert.True(t, MessageType(0xFC01).IsCustomEntry())
	assert.False(t, Start.IsCommand())
	assert.False(t, Start.IsNotification())
}
