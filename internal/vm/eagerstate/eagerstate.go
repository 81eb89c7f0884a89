// Package eagerstate implements the eager K/V cache (spec.md §4.5, C5): a
// partial, invocation-local view of durable state seeded from the Start
// message's state_map, letting most state reads be answered without a round
// trip to the orchestrator.
package eagerstate

import "sort"

// GetResult is the outcome of a Get lookup: the key's value is definitely
// Unknown (not in the partial cache, must ask the orchestrator), definitely
// Empty (cached as absent), or a concrete Value.
type GetResult int

const (
	Unknown GetResult = iota
	Empty
	Value
)

// State is the eager state cache for one invocation.
type State struct {
	isPartial bool
	values    map[string][]byte // nil entry (present key, nil slice) means "cached as cleared"
	present   map[string]bool   // tracks which keys have an entry, cleared keys (nil value) included
}

// New constructs a State seeded from the Start message's state_map. partial
// mirrors the Start message's partial_state flag: true unless the
// orchestrator declared the seeded map to be the complete key set.
func New(seed map[string][]byte, partial bool) *State {
	s := &State{
		isPartial: partial,
		values:    make(map[string][]byte, len(seed)),
		present:   make(map[string]bool, len(seed)),
	}
	for k, v := range seed {
		s.values[k] = v
		s.present[k] = true
	}
	return s
}

// Get returns the cached status of key.
func (s *State) Get(key string) (GetResult, []byte) {
	if s.present[key] {
		if v, ok := s.values[key]; ok && v != nil {
			return Value, v
		}
		return Empty, nil
	}
	if s.isPartial {
		return Unknown, nil
	}
	return Empty, nil
}

// GetKeys returns the full key set if it is known (the cache is not
// partial), or ok=false if the orchestrator must be asked.
func (s *State) GetKeys() (keys []string, ok bool) {
	if s.isPartial {
		return nil, false
	}
	keys = make([]string, 0, len(s.present))
	for k, present := range s.present {
		if present && s.values[k] != nil {
			// A present key with a nil value is tombstoned by a clear; it is
			// known to be absent, not part of the key set.
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, true
}

// Set records a local write so subsequent reads in the same invocation see
// it without waiting for the orchestrator to acknowledge the SetState
// command.
func (s *State) Set(key string, value []byte) {
	s.values[key] = value
	s.present[key] = true
}

// Clear records a local delete of a single key.
func (s *State) Clear(key string) {
	s.values[key] = nil
	s.present[key] = true
}

// ClearAll empties the cache and marks it complete: after a ClearAllState
// command, every key is known to be absent, so the cache is no longer
// partial.
func (s *State) ClearAll() {
	s.values = make(map[string][]byte)
	s.present = make(map[string]bool)
	s.isPartial = false
}

// IsPartial reports whether the cache might be missing keys the
// orchestrator holds.
func (s *State) IsPartial() bool {
	return s.isPartial
}
