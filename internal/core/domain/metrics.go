package domain

import "time"

// GenerationMetrics is a flat performance record captured for each
// generated assistant turn.
type GenerationMetrics struct {
	// ID is the unique identifier for the record.
	ID string

	// ConversationID is the conversation the turn belongs to.
	ConversationID string

	// Model is the model file identifier used for the turn.
	Model string

	// StartedAt is when generation was invoked.
	StartedAt time.Time

	// FirstTokenAt is when the first token arrived. Zero when the
	// stream produced no tokens.
	FirstTokenAt time.Time

	// CompletedAt is when the stream terminated.
	CompletedAt time.Time

	// PrefillMillis is the time to first token in milliseconds.
	PrefillMillis int64

	// DecodeTokensPerSec is estimated output tokens over the decode
	// duration (first token to completion).
	DecodeTokensPerSec float64

	// PromptTokens is the estimated token count of the rendered prompt.
	PromptTokens int

	// HistoryTokens is the estimated token count of prior turns.
	HistoryTokens int

	// ContextTokens is the estimated token count of the retrieved
	// memory and document blocks.
	ContextTokens int

	// OutputTokens is the estimated token count of the reply.
	OutputTokens int

	// RAGEnabled records whether document retrieval was active.
	RAGEnabled bool

	// MemoryEnabled records whether memory retrieval was active.
	MemoryEnabled bool
}
