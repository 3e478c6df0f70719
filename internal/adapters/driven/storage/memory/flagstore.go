package memory

import (
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure FlagStore implements the interface.
var _ driven.FlagStore = (*FlagStore)(nil)

// FlagStore is a map-backed implementation of driven.FlagStore.
type FlagStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewFlagStore creates a flag store seeded with the given values.
func NewFlagStore(values map[string]any) *FlagStore {
	if values == nil {
		values = make(map[string]any)
	}
	return &FlagStore{values: values}
}

// Set stores a flag value.
func (s *FlagStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Bool returns the flag value, or def when unset.
func (s *FlagStore) Bool(key string, def bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the flag value, or def when unset.
func (s *FlagStore) Int(key string, def int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(int); ok {
		return v
	}
	return def
}

// String returns the flag value, or def when unset.
func (s *FlagStore) String(key string, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return def
}
