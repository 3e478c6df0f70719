// Package embedding composes embedding services: a model-backed primary
// path with a deterministic fallback used when the model is absent or
// errors.
package embedding

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
	"github.com/caldera-labs/assistant-cli/internal/logger"
)

// Ensure Fallback implements the interface.
var _ driven.EmbeddingService = (*Fallback)(nil)

// Fallback delegates to a primary embedding service and falls back to a
// secondary one on error. The primary may be nil, in which case every
// call uses the fallback directly.
type Fallback struct {
	primary  driven.EmbeddingService
	fallback driven.EmbeddingService
}

// NewFallback creates a composed embedding service. fallback must not be
// nil; primary may be.
func NewFallback(primary, fallback driven.EmbeddingService) *Fallback {
	return &Fallback{primary: primary, fallback: fallback}
}

// Embed generates an embedding via the primary path, degrading to the
// fallback on error.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.primary != nil {
		vec, err := f.primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		logger.Warn("Primary embedding failed, using fallback: %v", err)
	}
	return f.fallback.Embed(ctx, text)
}

// Dimensions returns the embedding vector size of the active path.
func (f *Fallback) Dimensions() int {
	if f.primary != nil {
		return f.primary.Dimensions()
	}
	return f.fallback.Dimensions()
}

// ModelName returns the name of the primary model when configured.
func (f *Fallback) ModelName() string {
	if f.primary != nil {
		return f.primary.ModelName()
	}
	return f.fallback.ModelName()
}
