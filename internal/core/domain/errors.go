package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable indicates the model file is missing or corrupt.
	// A turn aborts before any persistence when the model is unavailable.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrGenerationFailed indicates the inference engine failed mid-turn.
	// Partial output is not persisted on a hard generation failure.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic retrieval degrades to keyword matching.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEngineUnavailable indicates the inference engine is not configured.
	ErrEngineUnavailable = errors.New("inference engine unavailable")

	// ErrStreamClosed indicates a token stream was already closed.
	ErrStreamClosed = errors.New("stream closed")
)
