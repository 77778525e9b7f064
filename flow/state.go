package flow

import (
	"sync"

	"github.com/flowsmith-ai/flowsmith/types"
)

// State is the shared key-value memory for one workflow instance. It is the
// only mutable resource shared between concurrently forked branches, so
// compound operations (Append, Increment) must be atomic within a single
// implementation-wide lock.
type State interface {
	// Set stores a value under key.
	Set(key string, value any)
	// Get returns the value under key, or def when absent.
	Get(key string, def any) any
	// Has reports whether key is present.
	Has(key string) bool
	// Append appends value to the list under key, creating the list when the
	// key is absent. Appending to a non-list value fails with STATE_TYPE.
	Append(key string, value any) error
	// Increment adds delta to the numeric value under key, seeding it with
	// def when absent, and returns the new value. A non-numeric existing
	// value fails with STATE_TYPE.
	Increment(key string, delta float64, def float64) (float64, error)
	// Clear removes all entries.
	Clear()
	// Snapshot returns a shallow copy of all entries.
	Snapshot() map[string]any
}

// MemoryState is the in-process State implementation. A single mutex guards
// every operation, including the read-modify-write of Append and Increment.
type MemoryState struct {
	mu      sync.Mutex
	entries map[string]any
}

// NewMemoryState creates an empty in-memory state store.
func NewMemoryState() *MemoryState {
	return &MemoryState{entries: make(map[string]any)}
}

// Set stores a value under key.
func (s *MemoryState) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Get returns the value under key, or def when absent.
func (s *MemoryState) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.entries[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (s *MemoryState) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Append appends value to the list under key, creating it when absent.
func (s *MemoryState) Append(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.entries[key]
	if !ok {
		s.entries[key] = []any{value}
		return nil
	}
	list, ok := existing.([]any)
	if !ok {
		return types.Errorf(types.ErrStateType, "append to non-list value under %q", key)
	}
	s.entries[key] = append(list, value)
	return nil
}

// Increment adds delta to the numeric value under key and returns the result.
func (s *MemoryState) Increment(key string, delta float64, def float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := def
	if existing, ok := s.entries[key]; ok {
		n, ok := toFloat(existing)
		if !ok {
			return 0, types.Errorf(types.ErrStateType, "increment of non-numeric value under %q", key)
		}
		current = n
	}
	next := current + delta
	s.entries[key] = next
	return next, nil
}

// Clear removes all entries.
func (s *MemoryState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]any)
}

// Snapshot returns a shallow copy of all entries.
func (s *MemoryState) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
