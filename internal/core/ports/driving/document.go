package driving

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// DocumentService manages the retrieval corpus.
type DocumentService interface {
	// AddDocument chunks, embeds, and persists a document.
	AddDocument(ctx context.Context, title, content, contentType string) (*domain.Document, error)

	// ListDocuments returns all documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document, its chunks, and their cached
	// embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// Search returns the topK most similar chunks for the query,
	// highest similarity first, with near-duplicate suppression and a
	// keyword fallback when no semantic candidate clears minSimilarity.
	Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]domain.RetrievalResult, error)
}
