package driving

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// MemoryService manages the personal memory store.
type MemoryService interface {
	// Add stores a memory and returns its id. Adding content that
	// normalises to an existing memory is idempotent and returns the
	// pre-existing id.
	Add(ctx context.Context, content, title, tags, keywords string, importance int) (string, error)

	// Search returns up to topK memories re-ranked for relevance and
	// diversity. When at least one candidate exists the result is never
	// empty, even if every candidate is below the similarity floor.
	Search(ctx context.Context, query string, topK int) ([]domain.MemoryItem, error)

	// List returns all memories.
	List(ctx context.Context) ([]domain.MemoryItem, error)

	// Delete removes a memory and its cached embedding.
	Delete(ctx context.Context, id string) error
}
