package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
	"github.com/vietddude/mailsift/internal/infra/storage"
)

// Pruner deletes overrides past their retention window. Overrides are never
// auto-expired before 30 days.
type Pruner struct {
	overrides storage.OverrideRepository
	retention time.Duration
	interval  time.Duration
}

// NewPruner creates a new Pruner worker.
func NewPruner(overrides storage.OverrideRepository) *Pruner {
	return &Pruner{
		overrides: overrides,
		retention: domain.OverrideRetention,
		interval:  1 * time.Hour,
	}
}

// Start runs the pruner loop until the context is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	threshold := time.Now().Add(-p.retention)
	deleted, err := p.overrides.DeleteExpired(ctx, threshold)
	if err != nil {
		slog.Error("failed to prune overrides", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("pruned expired overrides", "count", deleted)
	}
}
