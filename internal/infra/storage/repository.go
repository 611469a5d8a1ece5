package storage

import (
	"context"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
)

// ResultRepository handles durable classification storage. Rows are keyed by
// the item content hash, so re-deliveries of the same logical item share one
// row regardless of caller-side ids.
type ResultRepository interface {
	// Save upserts the result for a content hash, bumping updated_at
	Save(ctx context.Context, contentHash string, item domain.Item, result *domain.Result) error

	// GetByHash retrieves the latest result for a content hash, nil on miss
	GetByHash(ctx context.Context, contentHash string) (*domain.Result, error)

	// Stats computes aggregate statistics on demand
	Stats(ctx context.Context) (*Stats, error)
}

// Stats holds on-demand aggregates over stored classifications.
type Stats struct {
	Total              int64            `json:"total"`
	ByCategory         map[string]int64 `json:"by_category"`
	ByPriority         map[string]int64 `json:"by_priority"`
	DistinctCategories int64            `json:"distinct_categories"`
}

// OverrideRepository handles user-scoped manual classification assignments.
type OverrideRepository interface {
	// Upsert saves an override; last write wins per (itemID, userID)
	Upsert(ctx context.Context, override *domain.Override) error

	// Get retrieves an override, nil when absent
	Get(ctx context.Context, itemID, userID string) (*domain.Override, error)

	// Delete removes an override
	Delete(ctx context.Context, itemID, userID string) error

	// DeleteExpired removes overrides created before the threshold
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
