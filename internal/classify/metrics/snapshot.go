package metrics

import "sync"

// Snapshot is a cheap readable mirror of the resolution counters. Prometheus
// counters are write-only from Go, so the engine keeps this alongside them
// for the /stats endpoint.
type Snapshot struct {
	CacheHits     uint64            `json:"cache_hits"`
	CacheMisses   uint64            `json:"cache_misses"`
	StoreHits     uint64            `json:"store_hits"`
	StoreMisses   uint64            `json:"store_misses"`
	OverrideHits  uint64            `json:"override_hits"`
	ProviderCalls map[string]uint64 `json:"provider_calls"`
	FallbackUsed  uint64            `json:"fallback_used"`
	AvgLatencyMs  float64           `json:"avg_latency_ms"`
}

// Tracker accumulates resolution counters behind a mutex.
type Tracker struct {
	mu            sync.Mutex
	snap          Snapshot
	latencySumMs  float64
	latencySample uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{ProviderCalls: make(map[string]uint64)}}
}

func (t *Tracker) RecordCacheHit()     { t.mu.Lock(); t.snap.CacheHits++; t.mu.Unlock() }
func (t *Tracker) RecordCacheMiss()    { t.mu.Lock(); t.snap.CacheMisses++; t.mu.Unlock() }
func (t *Tracker) RecordStoreHit()     { t.mu.Lock(); t.snap.StoreHits++; t.mu.Unlock() }
func (t *Tracker) RecordStoreMiss()    { t.mu.Lock(); t.snap.StoreMisses++; t.mu.Unlock() }
func (t *Tracker) RecordOverrideHit()  { t.mu.Lock(); t.snap.OverrideHits++; t.mu.Unlock() }
func (t *Tracker) RecordFallbackUsed() { t.mu.Lock(); t.snap.FallbackUsed++; t.mu.Unlock() }

func (t *Tracker) RecordProviderCall(name string) {
	t.mu.Lock()
	t.snap.ProviderCalls[name]++
	t.mu.Unlock()
}

func (t *Tracker) RecordLatencyMs(ms float64) {
	t.mu.Lock()
	t.latencySumMs += ms
	t.latencySample++
	t.mu.Unlock()
}

// Read returns a copy of the current counters.
func (t *Tracker) Read() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.snap
	out.ProviderCalls = make(map[string]uint64, len(t.snap.ProviderCalls))
	for k, v := range t.snap.ProviderCalls {
		out.ProviderCalls[k] = v
	}
	if t.latencySample > 0 {
		out.AvgLatencyMs = t.latencySumMs / float64(t.latencySample)
	}
	return out
}
