// Package hash provides a deterministic, model-free embedding service.
//
// It is the always-available fallback when no embedding model is loaded:
// a hash-based bag-of-features over lower-cased alphanumeric words. The
// output is a pure function of the input text, so tests can assert exact
// vectors.
package hash

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Feature weights for the three hash-derived indices per word.
var featureWeights = [3]float32{1.0, 0.5, 0.25}

// EmbeddingService generates hash-based bag-of-features embeddings.
type EmbeddingService struct {
	dimensions int
}

// New creates a hash embedding service with the standard dimension.
func New() *EmbeddingService {
	return &EmbeddingService{dimensions: domain.EmbeddingDimensions}
}

// Embed generates an L2-normalised embedding for the given text.
// The computation is deterministic and side-effect free.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dimensions)

	for _, word := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(word))
		sum := h.Sum64()

		// Three independent indices derived from one hash.
		dim := uint64(s.dimensions)
		for _, weight := range featureWeights {
			idx := sum % dim
			sum /= dim
			vec[idx] += weight
		}
	}

	return domain.Normalize(vec), nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return "hash-bag-512"
}

// tokenize lower-cases the text, strips non-alphanumeric characters, and
// splits on whitespace.
func tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
