package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn written by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn generated by the model.
	RoleAssistant Role = "assistant"
)

// Message is a persisted conversation turn.
type Message struct {
	// ID is the unique identifier for the message.
	ID string

	// ConversationID groups messages into a conversation.
	ConversationID string

	// Role is the author of the turn.
	Role Role

	// Content is the message text.
	Content string

	// CreatedAt is when the message was stored.
	CreatedAt time.Time
}

// Turn is an in-memory conversation entry used when rendering prompts.
type Turn struct {
	Role    Role
	Content string
}
