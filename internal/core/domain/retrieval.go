package domain

// RetrievalKind identifies the source collection of a retrieval hit.
type RetrievalKind string

const (
	// RetrievalChunk marks a hit from the document corpus.
	RetrievalChunk RetrievalKind = "chunk"

	// RetrievalMemory marks a hit from the personal memory store.
	RetrievalMemory RetrievalKind = "memory"
)

// RetrievalResult is a single similarity search hit.
type RetrievalResult struct {
	// SourceID is the id of the matched chunk or memory item.
	SourceID string

	// Kind identifies which collection the hit came from.
	Kind RetrievalKind

	// Content is the matched text.
	Content string

	// Score is the similarity to the query, in [-1, 1]. Keyword
	// fallback hits report 1.0 to signal an exact text match.
	Score float64

	// Embedding is the source vector, kept for downstream diversity
	// comparison (near-duplicate suppression, MMR).
	Embedding []float32
}
