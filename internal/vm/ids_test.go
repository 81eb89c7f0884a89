package vm

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwakeableIDShape(t *testing.T) {
	id := awakeableID([]byte("inv-1"), 1)
	require.True(t, strings.HasPrefix(id, "prom_1"))

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, "prom_1"))
	require.NoError(t, err)
	require.Len(t, decoded, len("inv-1")+4)
	assert.Equal(t, []byte("inv-1"), decoded[:5])
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(decoded[5:]))
}

func TestAwakeableIDVariesByIndex(t *testing.T) {
	assert.NotEqual(t, awakeableID([]byte("inv-1"), 1), awakeableID([]byte("inv-1"), 2))
	assert.Equal(t, awakeableID([]byte("inv-1"), 1), awakeableID([]byte("inv-1"), 1))
}

func TestComputeRandomSeed(t *testing.T) {
	a := computeRandomSeed([]byte("inv-a"))
	assert.Equal(t, a, computeRandomSeed([]byte("inv-a")))
	assert.NotEqual(t, a, computeRandomSeed([]byte("inv-b")))
}

func TestWakeUpTimeMillis(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	assert.Equal(t, uint64(1_001_000), wakeUpTimeMillis(now, time.Second))
	assert.Equal(t, uint64(1_000_000), wakeUpTimeMillis(now, 0))
}
