package driving

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// ChatService orchestrates a full user turn: persistence, retrieval,
// prompt assembly, streaming generation, and metrics capture.
type ChatService interface {
	// SendMessage starts a generation turn for the conversation and
	// returns a finite token stream. Each call opens a new stream;
	// streams are not restartable. Cancelling the stream stops token
	// forwarding but the engine call is still drained to completion.
	SendMessage(ctx context.Context, conversationID, text string) (*domain.TokenStream, error)

	// History returns the persisted turns of a conversation.
	History(ctx context.Context, conversationID string) ([]domain.Message, error)

	// DeleteConversation removes a conversation, its turns, and its
	// in-memory session state.
	DeleteConversation(ctx context.Context, conversationID string) error
}
