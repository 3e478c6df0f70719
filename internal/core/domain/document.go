package domain

import "time"

// Document represents a user-provided document in the retrieval corpus.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Content is the full text content.
	Content string

	// ContentType describes the content format (e.g. "text/plain").
	ContentType string

	// CreatedAt is when the document was first added.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// Chunk is the unit of retrieval: a bounded, sentence-aligned substring
// of a document. Chunks are derived once at document-add time and are
// immutable thereafter.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the L2-normalised vector representation.
	// Always the same length as the embedding model's dimension.
	Embedding []float32
}
