package driven

// Feature flag keys consulted once per turn at the start of a generation.
const (
	// FlagRAGEnabled toggles document context retrieval.
	FlagRAGEnabled = "rag.enabled"

	// FlagMemoryEnabled toggles personal memory retrieval.
	FlagMemoryEnabled = "memory.enabled"

	// FlagThreads overrides the inference thread count.
	FlagThreads = "generation.threads"

	// FlagMaxTokens overrides the default max-token budget.
	FlagMaxTokens = "generation.max_tokens"

	// FlagModel selects the active model identifier.
	FlagModel = "model.id"

	// FlagSystemPrompt overrides the default system prompt.
	FlagSystemPrompt = "prompt.system"
)

// FlagStore provides key-value reads for feature toggles and tuning knobs.
type FlagStore interface {
	// Bool returns the flag value, or def when unset.
	Bool(key string, def bool) bool

	// Int returns the flag value, or def when unset.
	Int(key string, def int) int

	// String returns the flag value, or def when unset.
	String(key string, def string) string
}
