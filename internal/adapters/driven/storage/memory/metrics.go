package memory

import (
	"context"
	"sync"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
	"github.com/caldera-labs/assistant-cli/internal/core/ports/driven"
)

// Ensure MetricsRecorder implements the interface.
var _ driven.MetricsRecorder = (*MetricsRecorder)(nil)

// MetricsRecorder is an in-memory implementation of
// driven.MetricsRecorder.
type MetricsRecorder struct {
	mu   sync.RWMutex
	rows []domain.GenerationMetrics
}

// NewMetricsRecorder creates a new in-memory metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// Record appends a metrics row.
func (r *MetricsRecorder) Record(_ context.Context, m *domain.GenerationMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *m)
	return nil
}

// Recent returns the most recent limit rows, newest first.
func (r *MetricsRecorder) Recent(_ context.Context, limit int) ([]domain.GenerationMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.rows)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.GenerationMetrics, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.rows[i])
	}
	return out, nil
}
