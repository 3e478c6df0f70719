package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

func TestDocumentStore_Roundtrip(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "d1", Title: "notes", Content: "body", CreatedAt: time.Now()}
	require.NoError(t, store.SaveDocument(ctx, doc))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c2", DocumentID: "d1", Content: "second", Position: 1},
		{ID: "c1", DocumentID: "d1", Content: "first", Position: 0},
	}))

	got, err := store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "notes", got.Title)

	chunks, err := store.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	// Chunks come back ordered by position regardless of save order.
	assert.Equal(t, "first", chunks[0].Content)
	assert.Equal(t, "second", chunks[1].Content)
}

func TestDocumentStore_DeleteRemovesChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d1"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "d1"}}))

	require.NoError(t, store.DeleteDocument(ctx, "d1"))

	_, err := store.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := store.GetChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_ListOrderedByCreation(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "newer", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "older", CreatedAt: base}))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "older", docs[0].ID)
	assert.Equal(t, "newer", docs[1].ID)
}

func TestConversationStore_LimitKeepsRecentSuffix(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	for i, content := range []string{"one", "two", "three", "four"} {
		require.NoError(t, store.SaveMessage(ctx, &domain.Message{
			ID:             content,
			ConversationID: "conv",
			Role:           domain.RoleUser,
			Content:        content,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := store.ListMessages(ctx, "conv", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// The most recent turns, still oldest-first.
	assert.Equal(t, "three", msgs[0].Content)
	assert.Equal(t, "four", msgs[1].Content)

	all, err := store.ListMessages(ctx, "conv", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestConversationStore_ListAndDelete(t *testing.T) {
	store := NewConversationStore()
	ctx := context.Background()

	require.NoError(t, store.SaveMessage(ctx, &domain.Message{ID: "m1", ConversationID: "b"}))
	require.NoError(t, store.SaveMessage(ctx, &domain.Message{ID: "m2", ConversationID: "a"}))

	ids, err := store.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, store.DeleteConversation(ctx, "a"))
	ids, err = store.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestMemoryStore_Roundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.MemoryItem{ID: "m1", Content: "fact", CreatedAt: time.Now()}))

	item, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "fact", item.Content)

	require.NoError(t, store.Delete(ctx, "m1"))
	_, err = store.Get(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetricsRecorder_RecentNewestFirst(t *testing.T) {
	rec := NewMetricsRecorder()
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, &domain.GenerationMetrics{ID: "old"}))
	require.NoError(t, rec.Record(ctx, &domain.GenerationMetrics{ID: "new"}))

	rows, err := rec.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].ID)

	rows, err = rec.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "new", rows[0].ID)
	assert.Equal(t, "old", rows[1].ID)
}

func TestFlagStore_TypedAccess(t *testing.T) {
	flags := NewFlagStore(map[string]any{
		"generation.max_tokens": 128,
		"rag.enabled":           false,
		"model.id":              "tiny.gguf",
	})

	assert.Equal(t, 128, flags.Int("generation.max_tokens", 0))
	assert.False(t, flags.Bool("rag.enabled", true))
	assert.Equal(t, "tiny.gguf", flags.String("model.id", ""))

	// Unset keys and type mismatches fall back to the default.
	assert.Equal(t, 7, flags.Int("missing", 7))
	assert.Equal(t, 7, flags.Int("model.id", 7))
}

func TestModelStore_PathAndAvailability(t *testing.T) {
	store := NewModelStore(map[string]string{"tiny.gguf": "/models/tiny.gguf"})

	path, err := store.Path("tiny.gguf")
	require.NoError(t, err)
	assert.Equal(t, "/models/tiny.gguf", path)
	assert.True(t, store.Available("tiny.gguf"))

	_, err = store.Path("absent.gguf")
	assert.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.False(t, store.Available("absent.gguf"))

	store.Put("absent.gguf", "/models/absent.gguf")
	assert.True(t, store.Available("absent.gguf"))
}
