package services

import "sync"

// EmbeddingCache is a thread-safe map of entity id to normalised vector.
// Background cache warm-up and foreground search can race, so reads take
// a shared lock and inserts an exclusive one. Entries are invalidated
// only by entity deletion, never on read.
type EmbeddingCache struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewEmbeddingCache creates an empty cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		vectors: make(map[string][]float32),
	}
}

// Get returns the cached vector for the id, if present.
func (c *EmbeddingCache) Get(id string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[id]
	return vec, ok
}

// Put stores a vector for the id.
func (c *EmbeddingCache) Put(id string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors[id] = vec
}

// Delete removes the cache entry for the id.
func (c *EmbeddingCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.vectors, id)
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}
