package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caldera-labs/assistant-cli/internal/chunker"
	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driving"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure ContextService implements the interface.
var _ driving.DocumentService = (*ContextService)(nil)

// DefaultDuplicateCeiling is the pairwise similarity above which two
// accepted results count as near-duplicates.
const DefaultDuplicateCeiling = 0.8

// keywordMinWordLen is the minimum query word length considered by the
// keyword fallback.
const keywordMinWordLen = 3

// ContextService manages the document corpus and performs top-K cosine
// search with near-duplicate suppression and a keyword fallback.
type ContextService struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingService
	splitter *chunker.Splitter
	cache    *EmbeddingCache
}

// NewContextService creates a document retrieval service.
func NewContextService(
	docStore driven.DocumentStore,
	embedder driven.EmbeddingService,
	splitter *chunker.Splitter,
) *ContextService {
	return &ContextService{
		docStore: docStore,
		embedder: embedder,
		splitter: splitter,
		cache:    NewEmbeddingCache(),
	}
}

// AddDocument chunks, embeds, and persists a document. Chunks are derived
// deterministically from the content and are immutable thereafter.
func (s *ContextService) AddDocument(
	ctx context.Context, title, content, contentType string,
) (*domain.Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty document content", domain.ErrInvalidInput)
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	now := time.Now()
	doc := &domain.Document{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     content,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	texts := s.splitter.Split(content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			Embedding:  domain.Normalize(vec),
		})
	}

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	for i := range chunks {
		s.cache.Put(chunks[i].ID, chunks[i].Embedding)
	}

	logger.Info("Added document %q: %d chunks", title, len(chunks))
	return doc, nil
}

// ListDocuments returns all documents.
func (s *ContextService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document, its chunks, and their cached
// embeddings.
func (s *ContextService) DeleteDocument(ctx context.Context, id string) error {
	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	for i := range chunks {
		s.cache.Delete(chunks[i].ID)
	}
	return nil
}

// Search returns up to topK chunks similar to the query, highest
// similarity first. Near-duplicates among the accepted results are
// suppressed. When no semantic candidate clears minSimilarity, a plain
// keyword match over all chunks guarantees obviously relevant exact-text
// hits are still returned.
func (s *ContextService) Search(
	ctx context.Context, query string, topK int, minSimilarity float64,
) ([]domain.RetrievalResult, error) {
	logger.Section("Context Retrieval")
	logger.Debug("Query: %q, topK=%d, minSimilarity=%.2f", query, topK, minSimilarity)

	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec = domain.Normalize(queryVec)

	chunks, err := s.allChunks(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Scoring %d chunks", len(chunks))

	// Score every chunk against the single query embedding.
	candidates := make([]domain.RetrievalResult, 0, len(chunks))
	for i := range chunks {
		vec := s.chunkVector(chunks[i])
		score := domain.Dot(queryVec, vec)
		if score >= minSimilarity {
			candidates = append(candidates, domain.RetrievalResult{
				SourceID:  chunks[i].ID,
				Kind:      domain.RetrievalChunk,
				Content:   chunks[i].Content,
				Score:     score,
				Embedding: vec,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	accepted := suppressNearDuplicates(candidates, topK, DefaultDuplicateCeiling)
	logger.Debug("Semantic candidates: %d, accepted after dedup: %d", len(candidates), len(accepted))

	if len(accepted) > 0 {
		return accepted, nil
	}

	// The embedding fallback produces weak signal for out-of-vocabulary
	// or very short content; an exact keyword hit must never be lost.
	logger.Debug("No semantic hits, trying keyword fallback")
	return keywordFallback(query, chunks, topK), nil
}

// allChunks loads every chunk of every document.
func (s *ContextService) allChunks(ctx context.Context) ([]domain.Chunk, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var chunks []domain.Chunk
	for i := range docs {
		docChunks, err := s.docStore.GetChunks(ctx, docs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("get chunks for %s: %w", docs[i].ID, err)
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}

// chunkVector returns the chunk's normalised embedding, consulting the
// cache first.
func (s *ContextService) chunkVector(chunk domain.Chunk) []float32 {
	if vec, ok := s.cache.Get(chunk.ID); ok {
		return vec
	}
	vec := domain.Normalize(chunk.Embedding)
	s.cache.Put(chunk.ID, vec)
	return vec
}

// suppressNearDuplicates walks candidates in score order and accepts one
// only if its similarity to every already-accepted candidate stays at or
// below the ceiling. Stops once topK results are accepted.
func suppressNearDuplicates(
	candidates []domain.RetrievalResult, topK int, ceiling float64,
) []domain.RetrievalResult {
	accepted := make([]domain.RetrievalResult, 0, topK)

	for i := range candidates {
		if len(accepted) >= topK {
			break
		}
		duplicate := false
		for j := range accepted {
			if domain.CosineSimilarity(candidates[i].Embedding, accepted[j].Embedding) > ceiling {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, candidates[i])
		}
	}

	return accepted
}

// keywordFallback returns chunks containing at least one query word of
// length >= keywordMinWordLen. Hits report similarity 1.0 to signal an
// exact keyword match.
func keywordFallback(query string, chunks []domain.Chunk, topK int) []domain.RetrievalResult {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if len(w) >= keywordMinWordLen {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var results []domain.RetrievalResult
	for i := range chunks {
		if len(results) >= topK {
			break
		}
		content := strings.ToLower(chunks[i].Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				results = append(results, domain.RetrievalResult{
					SourceID:  chunks[i].ID,
					Kind:      domain.RetrievalChunk,
					Content:   chunks[i].Content,
					Score:     1.0,
					Embedding: chunks[i].Embedding,
				})
				break
			}
		}
	}

	return results
}
