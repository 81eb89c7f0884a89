package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	ty      MessageType
	payload []byte
}

func (m fakeMessage) MessageType() MessageType        { return m.ty }
func (m fakeMessage) MarshalPayload() ([]byte, error) { return m.payload, nil }

func TestDecoderFillWithSeveralMessages(t *testing.T) {
	encoder := NewEncoder(Latest())
	decoder := NewDecoder(Latest())

	msg0 := fakeMessage{ty: Start, payload: []byte("start-payload")}
	msg1 := fakeMessage{ty: InputCommand, payload: []byte("input")}
	msg2 := fakeMessage{ty: GetLazyStateCompletionNotification, payload: []byte{}}

	for _, m := range []fakeMessage{msg0, msg1, msg2} {
		encoded, err := encoder.Encode(m)
		require.NoError(t, err)
		decoder.Push(encoded)
	}

	got0, err := decoder.ConsumeNext()
	require.NoError(t, err)
	require.NotNil(t, got0)
	assert.Equal(t, Start, got0.Type())
	assert.Equal(t, msg0.payload, got0.Payload)

	got1, err := decoder.ConsumeNext()
	require.NoError(t, err)
	require.NotNil(t, got1)
	assert.Equal(t, InputCommand, got1.Type())
	assert.Equal(t, msg1.payload, got1.Payload)

	got2, err := decoder.ConsumeNext()
	require.NoError(t, err)
	require.NotNil(t, got2)
	assert.Equal(t, GetLazyStateCompletionNotification, got2.Type())

	got3, err := decoder.ConsumeNext()
	require.NoError(t, err)
	assert.Nil(t, got3)
}

func TestDecoderToleratesSplitHeader(t *testing.T) {
	partialDecodingTest(t, 4)
}

func TestDecoderToleratesSplitBody(t *testing.T) {
	partialDecodingTest(t, 10)
}

// partialDecodingTest feeds an encoded InputCommand frame to the decoder in
// two pushes, split at splitIndex, and asserts the message is only produced
// once the full frame has arrived - regardless of where the stream was cut.
func partialDecodingTest(t *testing.T, splitIndex int) {
	t.Helper()

	encoder := NewEncoder(Latest())
	decoder := NewDecoder(Latest())

	msg := fakeMessage{ty: InputCommand, payload: []byte("input")}
	encoded, err := encoder.Encode(msg)
	require.NoError(t, err)
	require.Greater(t, len(encoded), splitIndex)

	decoder.Push(encoded[:splitIndex])
	got, err := decoder.ConsumeNext()
	require.NoError(t, err)
	assert.Nil(t, got)

	decoder.Push(encoded[splitIndex:])
	got, err = decoder.ConsumeNext()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, InputCommand, got.Type())
	assert.Equal(t, msg.payload, got.Payload)

	got, err = decoder.ConsumeNext()
	require.NoError(t, err)
	assert.Nil(t, got)
}
