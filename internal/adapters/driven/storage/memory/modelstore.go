package memory

import (
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure ModelStore implements the interface.
var _ driven.ModelStore = (*ModelStore)(nil)

// ModelStore is a map-backed implementation of driven.ModelStore.
type ModelStore struct {
	mu    sync.RWMutex
	paths map[string]string
}

// NewModelStore creates a model store seeded with id to path mappings.
func NewModelStore(paths map[string]string) *ModelStore {
	if paths == nil {
		paths = make(map[string]string)
	}
	return &ModelStore{paths: paths}
}

// Put registers a model path.
func (s *ModelStore) Put(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[id] = path
}

// Path returns the local file path for a model identifier.
func (s *ModelStore) Path(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, ok := s.paths[id]
	if !ok {
		return "", domain.ErrModelUnavailable
	}
	return path, nil
}

// Available reports whether the model file is present.
func (s *ModelStore) Available(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.paths[id]
	return ok
}
