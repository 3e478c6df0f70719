package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/embedding/hash"
	"github.com/caldera-labs/assistant-cli/internal/adapters/driven/storage/memory"
	"github.com/caldera-labs/assistant-cli/internal/chunker"
	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

func newContextService() (*ContextService, *memory.DocumentStore) {
	store := memory.NewDocumentStore()
	svc := NewContextService(store, hash.New(), chunker.New())
	return svc, store
}

func TestAddDocument_ChunksAndPersists(t *testing.T) {
	svc, store := newContextService()
	ctx := context.Background()

	content := strings.Repeat("Facts about geography and countries. ", 60)
	doc, err := svc.AddDocument(ctx, "geo", content, "")

	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "text/plain", doc.ContentType)

	chunks, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for i := range chunks {
		assert.Equal(t, i, chunks[i].Position)
		assert.NotEmpty(t, chunks[i].Embedding)
	}
}

func TestAddDocument_EmptyContent(t *testing.T) {
	svc, _ := newContextService()

	_, err := svc.AddDocument(context.Background(), "empty", "   ", "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_FindsRelevantChunk(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "france", "The capital of France is Paris. It is known for the Eiffel Tower.", "")
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, "space", "Jupiter is the largest planet in the solar system.", "")
	require.NoError(t, err)

	results, err := svc.Search(ctx, "what is the capital of France", 3, 0.1)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "Paris")
	assert.Equal(t, domain.RetrievalChunk, results[0].Kind)
}

func TestSearch_ResultsOrderedByScore(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "a", "The capital of France is Paris.", "")
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, "b", "France has many capital ideas about art.", "")
	require.NoError(t, err)

	results, err := svc.Search(ctx, "capital of France", 5, 0.05)

	require.NoError(t, err)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_SuppressesNearDuplicates(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	// Identical content in two documents embeds identically.
	_, err := svc.AddDocument(ctx, "a", "The capital of France is Paris.", "")
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, "b", "The capital of France is Paris.", "")
	require.NoError(t, err)

	results, err := svc.Search(ctx, "capital of France", 5, 0.1)

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_KeywordFallback(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "note", "Remember the zanzibar meeting notes.", "")
	require.NoError(t, err)

	// A similarity floor of 1.0 blocks every semantic candidate, leaving
	// only the keyword path.
	results, err := svc.Search(ctx, "zanzibar", 3, 1.1)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Contains(t, results[0].Content, "zanzibar")
}

func TestSearch_KeywordFallbackIgnoresShortWords(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, "note", "it is an ox", "")
	require.NoError(t, err)

	// Every query word is under the keyword length cutoff.
	results, err := svc.Search(ctx, "it ox", 3, 1.1)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _ := newContextService()

	results, err := svc.Search(context.Background(), "   ", 3, 0.1)

	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestSearch_EmptyCorpus(t *testing.T) {
	svc, _ := newContextService()

	results, err := svc.Search(context.Background(), "anything", 3, 0.1)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RespectsTopK(t *testing.T) {
	svc, _ := newContextService()
	ctx := context.Background()

	docs := []string{
		"France borders Spain in the south.",
		"France borders Germany in the east.",
		"France borders Italy near the Alps.",
		"France borders Belgium in the north.",
	}
	for i, d := range docs {
		_, err := svc.AddDocument(ctx, string(rune('a'+i)), d, "")
		require.NoError(t, err)
	}

	results, err := svc.Search(ctx, "which countries border France", 2, 0.01)

	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}

func TestDeleteDocument_RemovesChunks(t *testing.T) {
	svc, store := newContextService()
	ctx := context.Background()

	doc, err := svc.AddDocument(ctx, "doomed", "Temporary content about nothing in particular.", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))

	_, err = store.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	results, err := svc.Search(ctx, "temporary content", 3, 0.1)
	require.NoError(t, err)
	assert.Empty(t, results)
}
