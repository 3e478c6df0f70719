package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/storage/memory"
	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

func seedConversation(t *testing.T, store *memory.ConversationStore, convID string, pairs int) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < pairs; i++ {
		require.NoError(t, store.SaveMessage(ctx, &domain.Message{
			ID:             fmt.Sprintf("u%d", i),
			ConversationID: convID,
			Role:           domain.RoleUser,
			Content:        fmt.Sprintf("question %d", i),
			CreatedAt:      base.Add(time.Duration(2*i) * time.Minute),
		}))
		require.NoError(t, store.SaveMessage(ctx, &domain.Message{
			ID:             fmt.Sprintf("a%d", i),
			ConversationID: convID,
			Role:           domain.RoleAssistant,
			Content:        fmt.Sprintf("answer %d", i),
			CreatedAt:      base.Add(time.Duration(2*i+1) * time.Minute),
		}))
	}
}

func TestSessions_CreatesLazily(t *testing.T) {
	store := memory.NewConversationStore()
	sessions := NewSessions(0)

	conv, err := sessions.Get(context.Background(), "conv", "qwen2.gguf", "sys", store)

	require.NoError(t, err)
	assert.Equal(t, domain.TemplateChatML, conv.Template())
	assert.Equal(t, "sys", conv.System())
	assert.Equal(t, 1, sessions.Len())
}

func TestSessions_ReusesMatchingInstance(t *testing.T) {
	store := memory.NewConversationStore()
	sessions := NewSessions(0)
	ctx := context.Background()

	first, err := sessions.Get(ctx, "conv", "qwen2.gguf", "sys", store)
	require.NoError(t, err)
	second, err := sessions.Get(ctx, "conv", "qwen2.gguf", "sys", store)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestSessions_RebuildsOnTemplateChange(t *testing.T) {
	store := memory.NewConversationStore()
	sessions := NewSessions(0)
	ctx := context.Background()

	first, err := sessions.Get(ctx, "conv", "qwen2.gguf", "sys", store)
	require.NoError(t, err)
	second, err := sessions.Get(ctx, "conv", "tinyllama.gguf", "sys", store)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, domain.TemplateTurnDelimited, second.Template())
	// The old instance is untouched.
	assert.Equal(t, domain.TemplateChatML, first.Template())
}

func TestSessions_RebuildsOnSystemPromptChange(t *testing.T) {
	store := memory.NewConversationStore()
	sessions := NewSessions(0)
	ctx := context.Background()

	first, err := sessions.Get(ctx, "conv", "model.gguf", "old prompt", store)
	require.NoError(t, err)
	second, err := sessions.Get(ctx, "conv", "model.gguf", "new prompt", store)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "new prompt", second.System())
}

func TestSessions_ReplaysRecentSuffix(t *testing.T) {
	store := memory.NewConversationStore()
	seedConversation(t, store, "conv", 5)
	sessions := NewSessions(0)

	conv, err := sessions.Get(context.Background(), "conv", "model.gguf", "sys", store)
	require.NoError(t, err)

	turns := conv.Turns()
	// Only the most recent pairs are replayed, oldest first.
	require.Len(t, turns, replayPairs*2)
	assert.Equal(t, "question 3", turns[0].Content)
	assert.Equal(t, "answer 4", turns[len(turns)-1].Content)
}

func TestSessions_ReplayOpensOnUserTurn(t *testing.T) {
	store := memory.NewConversationStore()
	seedConversation(t, store, "conv", 2)
	// An unanswered question, as left behind by a failed generation,
	// pushes the positional suffix to open mid-pair.
	require.NoError(t, store.SaveMessage(context.Background(), &domain.Message{
		ID:             "u-dangling",
		ConversationID: "conv",
		Role:           domain.RoleUser,
		Content:        "unanswered question",
		CreatedAt:      time.Now(),
	}))

	conv, err := NewSessions(0).Get(context.Background(), "conv", "model.gguf", "sys", store)
	require.NoError(t, err)

	turns := conv.Turns()
	require.NotEmpty(t, turns)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, "question 1", turns[0].Content)
	assert.Equal(t, "unanswered question", turns[len(turns)-1].Content)
}

func TestSessions_Evict(t *testing.T) {
	store := memory.NewConversationStore()
	sessions := NewSessions(0)
	ctx := context.Background()

	first, err := sessions.Get(ctx, "conv", "model.gguf", "sys", store)
	require.NoError(t, err)
	sessions.Evict("conv")
	assert.Zero(t, sessions.Len())

	second, err := sessions.Get(ctx, "conv", "model.gguf", "sys", store)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
