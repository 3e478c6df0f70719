package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driving"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure MemoryService implements the interface.
var _ driving.MemoryService = (*MemoryService)(nil)

// Tuning defaults. The floor and lambda are hand-tuned for short personal
// facts; they are configuration, not algorithmic guarantees.
const (
	// DefaultSimilarityFloor filters weak matches out of memory search.
	DefaultSimilarityFloor = 0.2

	// DefaultMMRLambda weights relevance over diversity in re-ranking.
	DefaultMMRLambda = 0.7

	// warmRatePerSec caps background embedding computation so cache
	// warm-up does not crowd out foreground search.
	warmRatePerSec = 20
)

// MemoryService stores short personal facts with cached embeddings,
// de-duplicates on insert, and searches with a similarity floor and MMR
// re-ranking.
type MemoryService struct {
	store    driven.MemoryStore
	embedder driven.EmbeddingService
	cache    *EmbeddingCache
	floor    float64
	lambda   float64
	warm     *rate.Limiter
}

// MemoryOption configures the memory service.
type MemoryOption func(*MemoryService)

// WithSimilarityFloor sets the minimum similarity for search hits.
func WithSimilarityFloor(floor float64) MemoryOption {
	return func(s *MemoryService) {
		s.floor = floor
	}
}

// WithMMRLambda sets the relevance/diversity trade-off for re-ranking.
func WithMMRLambda(lambda float64) MemoryOption {
	return func(s *MemoryService) {
		if lambda >= 0 && lambda <= 1 {
			s.lambda = lambda
		}
	}
}

// NewMemoryService creates a memory service.
func NewMemoryService(store driven.MemoryStore, embedder driven.EmbeddingService, opts ...MemoryOption) *MemoryService {
	s := &MemoryService{
		store:    store,
		embedder: embedder,
		cache:    NewEmbeddingCache(),
		floor:    DefaultSimilarityFloor,
		lambda:   DefaultMMRLambda,
		warm:     rate.NewLimiter(rate.Limit(warmRatePerSec), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add stores a memory and returns its id. The content is normalised
// before storage; adding content that normalises to an existing memory
// returns the pre-existing id without inserting.
func (s *MemoryService) Add(
	ctx context.Context, content, title, tags, keywords string, importance int,
) (string, error) {
	normalized := domain.NormalizeMemoryContent(content)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty memory content", domain.ErrInvalidInput)
	}
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list memories: %w", err)
	}
	for i := range existing {
		if existing[i].Content == normalized {
			logger.Debug("Duplicate memory, returning existing id %s", existing[i].ID)
			return existing[i].ID, nil
		}
	}

	now := time.Now()
	item := &domain.MemoryItem{
		ID:         uuid.New().String(),
		Title:      title,
		Content:    normalized,
		Keywords:   keywords,
		Tags:       tags,
		Importance: importance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, item); err != nil {
		return "", fmt.Errorf("save memory: %w", err)
	}

	// Eagerly compute the embedding so the first search does not pay
	// for it.
	if vec, err := s.embedder.Embed(ctx, normalized); err == nil {
		s.cache.Put(item.ID, domain.Normalize(vec))
	} else {
		logger.Warn("Eager memory embedding failed: %v", err)
	}

	return item.ID, nil
}

// Search returns up to topK memories ranked by similarity to the query
// and re-ranked with MMR for diversity. When at least one candidate
// exists the result is never empty: if every candidate is below the
// similarity floor, the single best one is kept.
func (s *MemoryService) Search(ctx context.Context, query string, topK int) ([]domain.MemoryItem, error) {
	logger.Section("Memory Retrieval")
	logger.Debug("Query: %q, topK=%d", query, topK)

	if topK <= 0 {
		return nil, nil
	}

	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	items = dropExpired(items, time.Now())
	if len(items) == 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec = domain.Normalize(queryVec)

	// Both sides are normalised, so cosine reduces to a dot product.
	scored := make([]scoredMemory, 0, len(items))
	for i := range items {
		vec, err := s.itemVector(ctx, &items[i])
		if err != nil {
			logger.Warn("Memory embedding failed for %s: %v", items[i].ID, err)
			continue
		}
		scored = append(scored, scoredMemory{
			item:  items[i],
			score: domain.Dot(queryVec, vec),
			vec:   vec,
		})
	}
	if len(scored) == 0 {
		return nil, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	filtered := scored[:0:0]
	for _, c := range scored {
		if c.score >= s.floor {
			filtered = append(filtered, c)
		}
	}
	// A query must never return nothing when candidates exist.
	if len(filtered) == 0 {
		filtered = scored[:1]
	}
	logger.Debug("Candidates: %d, above floor: %d", len(scored), len(filtered))

	ranked := maxMarginalRelevance(filtered, s.lambda, topK)

	results := make([]domain.MemoryItem, len(ranked))
	for i := range ranked {
		results[i] = ranked[i].item
	}
	return results, nil
}

// List returns all memories.
func (s *MemoryService) List(ctx context.Context) ([]domain.MemoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	return items, nil
}

// Delete removes a memory and invalidates its cached embedding.
func (s *MemoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	s.cache.Delete(id)
	return nil
}

// WarmCache computes missing memory embeddings in the background,
// rate-limited so foreground search latency is unaffected. Safe to run
// concurrently with Search.
func (s *MemoryService) WarmCache(ctx context.Context) error {
	items, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}

	warmed := 0
	for i := range items {
		if _, ok := s.cache.Get(items[i].ID); ok {
			continue
		}
		if err := s.warm.Wait(ctx); err != nil {
			return err
		}
		if _, err := s.itemVector(ctx, &items[i]); err != nil {
			logger.Warn("Cache warm-up failed for %s: %v", items[i].ID, err)
			continue
		}
		warmed++
	}

	logger.Debug("Warmed %d memory embeddings", warmed)
	return nil
}

// itemVector returns the item's normalised embedding, computing and
// caching it lazily.
func (s *MemoryService) itemVector(ctx context.Context, item *domain.MemoryItem) ([]float32, error) {
	if vec, ok := s.cache.Get(item.ID); ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, item.Content)
	if err != nil {
		return nil, err
	}
	vec = domain.Normalize(vec)
	s.cache.Put(item.ID, vec)
	return vec, nil
}

// dropExpired filters out memories whose expiry has passed.
func dropExpired(items []domain.MemoryItem, now time.Time) []domain.MemoryItem {
	kept := items[:0:0]
	for i := range items {
		if items[i].ExpiresAt != nil && items[i].ExpiresAt.Before(now) {
			continue
		}
		kept = append(kept, items[i])
	}
	return kept
}
