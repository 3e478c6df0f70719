package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure MemoryStore implements the interface.
var _ driven.MemoryStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of driven.MemoryStore.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]domain.MemoryItem
}

// NewMemoryStore creates a new in-memory memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]domain.MemoryItem),
	}
}

// Save stores or updates a memory item.
func (s *MemoryStore) Save(_ context.Context, item *domain.MemoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}

// Get retrieves a memory item by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*domain.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// List returns all memory items.
func (s *MemoryStore) List(_ context.Context) ([]domain.MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.MemoryItem, 0, len(s.items))
	for id := range s.items {
		result = append(result, s.items[id])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Delete removes a memory item.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
