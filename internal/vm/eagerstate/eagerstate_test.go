package eagerstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFromPartialSeed(t *testing.T) {
	s := New(map[string][]byte{"a": []byte("1")}, true)

	status, v := s.Get("a")
	assert.Equal(t, Value, status)
	assert.Equal(t, []byte("1"), v)

	status, _ = s.Get("missing")
	assert.Equal(t, Unknown, status)

	_, ok := s.GetKeys()
	assert.False(t, ok, "partial cache cannot answer get_keys")
}

func TestGetFromCompleteSeed(t *testing.T) {
	s := New(map[string][]byte{"a": []byte("1")}, false)

	status, _ := s.Get("missing")
	assert.Equal(t, Empty, status)

	keys, ok := s.GetKeys()
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"a"}, keys)
}

func TestSetAndClear(t *testing.T) {
	s := New(nil, true)

	s.Set("k", []byte("v"))
	status, v := s.Get("k")
	assert.Equal(t, Value, status)
	assert.Equal(t, []byte("v"), v)

	s.Clear("k")
	status, _ = s.Get("k")
	assert.Equal(t, Empty, status)
}

func TestClearAllMakesCacheComplete(t *testing.T) {
	s := New(map[string][]byte{"a": []byte("1")}, true)
	s.ClearAll()

	assert.False(t, s.IsPartial())
	status, _ := s.Get("a")
	assert.Equal(t, Empty, status)

	keys, ok := s.GetKeys()
	assert.True(t, ok)
	assert.Empty(t, keys)
}
