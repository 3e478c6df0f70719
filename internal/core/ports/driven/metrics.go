package driven

import (
	"context"

	"github.com/caldera-labs/assistant-cli/internal/core/domain"
)

// MetricsRecorder appends generation performance records.
type MetricsRecorder interface {
	// Record appends a metrics row.
	Record(ctx context.Context, m *domain.GenerationMetrics) error

	// Recent returns the most recent limit records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.GenerationMetrics, error)
}
