package driven

import "context"

// Handle is an opaque reference to a loaded inference context.
// The context is a single, non-reentrant shared resource: callers must
// serialize generations against it and clear its cache between unrelated
// conversations.
type Handle interface{}

// Engine is the narrow streaming contract consumed from the native
// inference layer. Token pieces are already detokenised text; the core
// only performs whitespace and end-of-turn marker normalisation on them.
type Engine interface {
	// Create loads the model at modelPath and returns a handle.
	// Fails when the model file is missing or corrupt.
	Create(ctx context.Context, modelPath string, threads int) (Handle, error)

	// GenerateStream runs generation for the prompt, invoking onToken
	// zero or more times in order until a stop condition. onToken is
	// called from the generation goroutine; it must not block.
	GenerateStream(ctx context.Context, h Handle, prompt string, maxTokens int, onToken func(piece string)) error

	// ClearCache clears the handle's KV cache. Called before each turn
	// to avoid cross-conversation context leakage.
	ClearCache(h Handle) error

	// Destroy releases the handle and its model.
	Destroy(h Handle) error
}
