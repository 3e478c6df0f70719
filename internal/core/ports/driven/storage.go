package driven

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// DocumentStore persists documents and their chunks.
// Writes are upserts keyed by id; deletes are by id.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks stores the chunks for a document.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}

// MemoryStore persists personal memory items.
type MemoryStore interface {
	// Save stores or updates a memory item.
	Save(ctx context.Context, item *domain.MemoryItem) error

	// Get retrieves a memory item by ID.
	Get(ctx context.Context, id string) (*domain.MemoryItem, error)

	// List returns all memory items.
	List(ctx context.Context) ([]domain.MemoryItem, error)

	// Delete removes a memory item.
	Delete(ctx context.Context, id string) error
}

// ConversationStore persists conversation turns.
type ConversationStore interface {
	// SaveMessage appends a turn to a conversation.
	SaveMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns the turns of a conversation in order.
	// A limit of 0 returns everything; otherwise the most recent limit
	// turns are returned, still oldest-first.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// ListConversations returns the known conversation ids.
	ListConversations(ctx context.Context) ([]string, error)

	// DeleteConversation removes a conversation and its turns.
	DeleteConversation(ctx context.Context, conversationID string) error
}
