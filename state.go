package workflow

import (
	"sort"
	"sync"
)

// State is the shared key/value arena for a single execution. It is mutated
// by concurrently executing nodes and is safe for concurrent use.
type State struct {
	values map[string]any
	mutex  sync.RWMutex
}

// NewState creates a State seeded with the given values.
func NewState(values map[string]any) *State {
	s := &State{values: make(map[string]any, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Set stores a value in the state.
func (s *State) Set(key string, value any) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.values[key] = value
}

// Get retrieves a value from the state.
func (s *State) Get(key string) (any, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, exists := s.values[key]
	return value, exists
}

// Delete removes a key from the state.
func (s *State) Delete(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.values, key)
}

// Keys returns all keys in the state, sorted.
func (s *State) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a shallow copy of the current state values.
func (s *State) Copy() map[string]any {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
