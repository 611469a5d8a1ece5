// Package engine implements the classification resolution pipeline. Tiers
// are consulted in a fixed order (user override, cache, durable store,
// provider chain, rule fallback) and the first accepted answer wins.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/mailsift/internal/classify/metrics"
	"github.com/vietddude/mailsift/internal/classify/rules"
	"github.com/vietddude/mailsift/internal/core/domain"
	"github.com/vietddude/mailsift/internal/infra/events"
	redisclient "github.com/vietddude/mailsift/internal/infra/redis"
	"github.com/vietddude/mailsift/internal/infra/storage"
)

// Cache is the cache tier consumed by the engine. The Redis implementation
// satisfies it; tests use in-process fakes.
type Cache interface {
	Get(ctx context.Context, itemID string) (*domain.Result, bool, error)
	Set(ctx context.Context, itemID string, result *domain.Result, ttl time.Duration) error
	Delete(ctx context.Context, itemID string) error
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// ProviderChain is the remote classifier chain consumed by the engine.
type ProviderChain interface {
	Classify(ctx context.Context, item domain.Item) (*domain.Result, error)
}

// Config holds engine tunables.
type Config struct {
	BatchGroupSize  int
	BatchGroupPause time.Duration
}

// Engine resolves classifications. Classify never returns an error: on total
// failure the deterministic rule classifier answers with a degraded result.
type Engine struct {
	cfg       Config
	overrides storage.OverrideRepository
	results   storage.ResultRepository
	cache     Cache
	chain     ProviderChain
	rules     *rules.Classifier
	events    events.Publisher
	tracker   *metrics.Tracker
	log       *slog.Logger

	persist chan persistJob
	done    chan struct{}
}

type persistJob struct {
	itemID string
	item   domain.Item
	result domain.Result
}

// New creates an engine. cache and chain may be nil; the corresponding tiers
// are then skipped and the engine stays correct, only slower.
func New(
	cfg Config,
	overrides storage.OverrideRepository,
	results storage.ResultRepository,
	cache Cache,
	chain ProviderChain,
	publisher events.Publisher,
	log *slog.Logger,
) *Engine {
	if cfg.BatchGroupSize <= 0 {
		cfg.BatchGroupSize = 5
	}
	if cfg.BatchGroupPause <= 0 {
		cfg.BatchGroupPause = 2 * time.Second
	}

	e := &Engine{
		cfg:       cfg,
		overrides: overrides,
		results:   results,
		cache:     cache,
		chain:     chain,
		rules:     rules.New(),
		events:    publisher,
		tracker:   metrics.NewTracker(),
		log:       log,
		persist:   make(chan persistJob, 256),
		done:      make(chan struct{}),
	}
	go e.persistLoop()
	return e
}

// Classify resolves one item. The resolution order is fixed: override,
// cache, durable store, provider chain, rules. Persistence of a fresh
// result is handed off to the writer goroutine; the caller does not wait
// for it.
func (e *Engine) Classify(ctx context.Context, item domain.Item, userID string) domain.Result {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.ClassifyLatency.Observe(elapsed.Seconds())
		e.tracker.RecordLatencyMs(float64(elapsed.Microseconds()) / 1000)
	}()

	itemID := item.ContentHash()

	// 1. Override: absolute, nothing below is consulted.
	if override := e.lookupOverride(ctx, itemID, userID); override != nil {
		metrics.OverrideHits.Inc()
		e.tracker.RecordOverrideHit()
		return override.Result()
	}

	// 2. Cache: transparent, the stored source tag is preserved.
	if cached := e.lookupCache(ctx, itemID); cached != nil {
		metrics.CacheHits.Inc()
		e.tracker.RecordCacheHit()
		return *cached
	}
	metrics.CacheMisses.Inc()
	e.tracker.RecordCacheMiss()

	// 3. Durable store: hit backfills the cache with the policy TTL.
	if stored := e.lookupStore(ctx, itemID); stored != nil {
		metrics.StoreHits.Inc()
		e.tracker.RecordStoreHit()
		e.backfillCache(itemID, *stored)
		return *stored
	}
	metrics.StoreMisses.Inc()
	e.tracker.RecordStoreMiss()

	// 4. Provider chain, strict mode: first parse meeting the confidence
	// threshold is accepted.
	if e.chain != nil {
		result, err := e.chain.Classify(ctx, item)
		if err == nil {
			e.tracker.RecordProviderCall(result.Source)
			e.enqueuePersist(itemID, item, *result)
			return *result
		}
		e.log.Debug("provider chain exhausted", "item", itemID, "error", err)
	}

	// 5. Rule fallback: cannot fail.
	metrics.FallbackUsed.Inc()
	e.tracker.RecordFallbackUsed()
	result := e.rules.Classify(item)
	e.enqueuePersist(itemID, item, result)
	return result
}

// ClassifyBatch resolves items in fixed-size groups with a pause between
// groups to respect provider rate limits. Items within a group run
// concurrently; one item falling back never delays or aborts its siblings.
// Results come back in input order.
func (e *Engine) ClassifyBatch(ctx context.Context, items []domain.Item, userID string) []domain.Result {
	results := make([]domain.Result, len(items))

	for groupStart := 0; groupStart < len(items); groupStart += e.cfg.BatchGroupSize {
		groupEnd := min(groupStart+e.cfg.BatchGroupSize, len(items))

		done := make(chan int, groupEnd-groupStart)
		for i := groupStart; i < groupEnd; i++ {
			go func(i int) {
				results[i] = e.Classify(ctx, items[i], userID)
				done <- i
			}(i)
		}
		for i := groupStart; i < groupEnd; i++ {
			<-done
		}

		if groupEnd < len(items) {
			select {
			case <-ctx.Done():
				// Remaining items still get a result, via rules only:
				// callers always receive one result per item.
				for i := groupEnd; i < len(items); i++ {
					results[i] = e.rules.Classify(items[i])
				}
				return results
			case <-time.After(e.cfg.BatchGroupPause):
			}
		}
	}
	return results
}

func (e *Engine) lookupOverride(ctx context.Context, itemID, userID string) *domain.Override {
	override, err := e.overrides.Get(ctx, itemID, userID)
	if err != nil {
		e.log.Warn("override lookup failed, continuing chain", "item", itemID, "error", err)
		return nil
	}
	return override
}

func (e *Engine) lookupCache(ctx context.Context, itemID string) *domain.Result {
	if e.cache == nil {
		return nil
	}
	result, found, err := e.cache.Get(ctx, itemID)
	if err != nil {
		e.log.Warn("cache unavailable, continuing chain", "item", itemID, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	return result
}

func (e *Engine) lookupStore(ctx context.Context, itemID string) *domain.Result {
	result, err := e.results.GetByHash(ctx, itemID)
	if err != nil {
		e.log.Warn("durable store unavailable, continuing chain", "item", itemID, "error", err)
		return nil
	}
	if result == nil {
		return nil
	}
	result.Source = domain.SourceStore
	return result
}

func (e *Engine) backfillCache(itemID string, result domain.Result) {
	if e.cache == nil {
		return
	}
	select {
	case e.persist <- persistJob{itemID: itemID, result: result}:
	default:
		e.log.Warn("persist queue full, dropping cache backfill", "item", itemID)
	}
}

func (e *Engine) enqueuePersist(itemID string, item domain.Item, result domain.Result) {
	select {
	case e.persist <- persistJob{itemID: itemID, item: item, result: result}:
	default:
		e.log.Warn("persist queue full, dropping write", "item", itemID)
	}
}

// persistLoop applies cache and store writes after resolution. Failures are
// logged, never propagated: persistence is best-effort.
func (e *Engine) persistLoop() {
	for job := range e.persist {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if e.cache != nil {
			ttl := redisclient.TTLFor(&job.result)
			if err := e.cache.Set(ctx, job.itemID, &job.result, ttl); err != nil {
				e.log.Warn("cache write failed", "item", job.itemID, "error", err)
			}
		}

		// Backfill jobs carry no item; the row already exists.
		if job.item != (domain.Item{}) {
			if err := e.results.Save(ctx, job.itemID, job.item, &job.result); err != nil {
				e.log.Warn("store write failed", "item", job.itemID, "error", err)
			}
		}

		cancel()
	}
	close(e.done)
}

// Close drains pending writes.
func (e *Engine) Close(ctx context.Context) error {
	close(e.persist)
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetOverride pins a manual classification, invalidates the cached entry so
// the next resolution reflects it, and publishes a category_override event.
func (e *Engine) SetOverride(ctx context.Context, itemID, userID string, category domain.Category, metadata map[string]string) (*domain.Override, error) {
	if !domain.ValidCategory(category) {
		return nil, errors.New("invalid category: " + string(category))
	}

	override := &domain.Override{
		ItemID:    itemID,
		UserID:    userID,
		Category:  category,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.overrides.Upsert(ctx, override); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Delete(ctx, itemID); err != nil {
			e.log.Warn("cache invalidation failed after override", "item", itemID, "error", err)
		}
	}

	if e.events != nil {
		event := &domain.OverrideEvent{
			ID:        uuid.NewString(),
			Type:      domain.EventTypeCategoryOverride,
			Override:  *override,
			EmittedAt: time.Now().UTC(),
		}
		if err := e.events.Publish(ctx, event); err != nil {
			e.log.Warn("override event publish failed", "item", itemID, "error", err)
		}
	}

	return override, nil
}

// GetOverride returns the override for (item, user), nil when absent.
func (e *Engine) GetOverride(ctx context.Context, itemID, userID string) (*domain.Override, error) {
	return e.overrides.Get(ctx, itemID, userID)
}

// DeleteOverride removes an override and invalidates the cached entry so the
// next resolution re-runs the full chain.
func (e *Engine) DeleteOverride(ctx context.Context, itemID, userID string) error {
	if err := e.overrides.Delete(ctx, itemID, userID); err != nil {
		return err
	}
	if e.cache != nil {
		if err := e.cache.Delete(ctx, itemID); err != nil {
			e.log.Warn("cache invalidation failed after override delete", "item", itemID, "error", err)
		}
	}
	return nil
}

// InvalidateProviderResults drops cached entries resolved by the named
// provider. Used on provider toggles; unrelated entries stay valid.
func (e *Engine) InvalidateProviderResults(ctx context.Context, providerName string) (int, error) {
	if e.cache == nil {
		return 0, nil
	}
	return e.cache.DeleteBySource(ctx, domain.ProviderSource(providerName))
}

// Stats merges durable-store aggregates with resolution counters.
type Stats struct {
	Store    *storage.Stats   `json:"store"`
	Counters metrics.Snapshot `json:"counters"`
}

// Stats computes aggregates on demand.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	storeStats, err := e.results.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Store: storeStats, Counters: e.tracker.Read()}, nil
}
