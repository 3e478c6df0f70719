package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// replayPairs is the number of recent user+assistant pairs carried into a
// rebuilt conversation for continuity.
const replayPairs = 2

// Sessions owns the per-conversation Conversation instances. A session is
// created lazily on the first message of a conversation, recreated (never
// mutated) when the resolved template or system prompt changes, and
// evicted when the conversation is deleted.
type Sessions struct {
	mu      sync.Mutex
	byID    map[string]*Conversation
	ceiling int
}

// NewSessions creates an empty session index.
func NewSessions(ceiling int) *Sessions {
	return &Sessions{
		byID:    make(map[string]*Conversation),
		ceiling: ceiling,
	}
}

// Get returns the session for the conversation, creating or rebuilding it
// as needed. The template is a pure function of the model filename; when
// it or the system prompt differs from the cached instance, a fresh
// instance is built replaying a short suffix of persisted history.
func (s *Sessions) Get(
	ctx context.Context,
	conversationID, modelFile, system string,
	store driven.ConversationStore,
) (*Conversation, error) {
	template := domain.DetectTemplate(modelFile)

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.byID[conversationID]; ok {
		if conv.Template() == template && conv.System() == system {
			return conv, nil
		}
		logger.Debug("Template changed for conversation %s (%s -> %s), rebuilding session",
			conversationID, conv.Template(), template)
	}

	conv := NewConversation(conversationID, template, system, s.ceiling)

	// Replay the recent suffix from storage so sessions survive both
	// model switches and process restarts.
	msgs, err := store.ListMessages(ctx, conversationID, replayPairs*2)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	// The positional suffix can open mid-pair when an earlier turn went
	// unanswered; start the replay at a user turn so history trimming
	// keeps dropping user+assistant pairs as units.
	for len(msgs) > 0 && msgs[0].Role != domain.RoleUser {
		msgs = msgs[1:]
	}
	for i := range msgs {
		switch msgs[i].Role {
		case domain.RoleUser:
			conv.AppendUser(msgs[i].Content)
		case domain.RoleAssistant:
			conv.AppendAssistant(msgs[i].Content)
		}
	}

	s.byID[conversationID] = conv
	return conv, nil
}

// Evict drops the in-memory session for a conversation.
func (s *Sessions) Evict(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, conversationID)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
