package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
	"github.com/vietddude/mailsift/internal/infra/storage"
)

// MemoryStorage backs the repositories with in-process maps. Used when no
// database is configured, and in tests.
type MemoryStorage struct {
	results   map[string]*domain.Result
	overrides map[string]*domain.Override
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		results:   make(map[string]*domain.Result),
		overrides: make(map[string]*domain.Override),
	}
}

func overrideKey(itemID, userID string) string {
	return itemID + ":" + userID
}

// -----------------------------------------------------------------------------
// Result Repository
// -----------------------------------------------------------------------------

type ResultRepo struct {
	store *MemoryStorage
}

func NewResultRepo(store *MemoryStorage) *ResultRepo {
	return &ResultRepo{store: store}
}

func (r *ResultRepo) Save(ctx context.Context, contentHash string, item domain.Item, result *domain.Result) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *result
	r.store.results[contentHash] = &cp
	return nil
}

func (r *ResultRepo) GetByHash(ctx context.Context, contentHash string) (*domain.Result, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	result, ok := r.store.results[contentHash]
	if !ok {
		return nil, nil
	}
	cp := *result
	return &cp, nil
}

func (r *ResultRepo) Stats(ctx context.Context) (*storage.Stats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := &storage.Stats{
		ByCategory: make(map[string]int64),
		ByPriority: make(map[string]int64),
	}
	for _, result := range r.store.results {
		stats.Total++
		stats.ByCategory[string(result.Category)]++
		stats.ByPriority[string(result.Priority)]++
	}
	stats.DistinctCategories = int64(len(stats.ByCategory))
	return stats, nil
}

// -----------------------------------------------------------------------------
// Override Repository
// -----------------------------------------------------------------------------

type OverrideRepo struct {
	store *MemoryStorage
}

func NewOverrideRepo(store *MemoryStorage) *OverrideRepo {
	return &OverrideRepo{store: store}
}

func (r *OverrideRepo) Upsert(ctx context.Context, override *domain.Override) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *override
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	r.store.overrides[overrideKey(cp.ItemID, cp.UserID)] = &cp
	return nil
}

func (r *OverrideRepo) Get(ctx context.Context, itemID, userID string) (*domain.Override, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	override, ok := r.store.overrides[overrideKey(itemID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *override
	return &cp, nil
}

func (r *OverrideRepo) Delete(ctx context.Context, itemID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.overrides, overrideKey(itemID, userID))
	return nil
}

func (r *OverrideRepo) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for key, override := range r.store.overrides {
		if override.CreatedAt.Before(olderThan) {
			delete(r.store.overrides, key)
			deleted++
		}
	}
	return deleted, nil
}
