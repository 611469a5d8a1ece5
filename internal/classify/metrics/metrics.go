package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache tier lookups that returned a fresh entry
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks cache tier lookups that fell through
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// StoreHits tracks durable store lookups that returned a row
	StoreHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_store_hits_total",
			Help: "Total number of durable store hits",
		},
	)

	// StoreMisses tracks durable store lookups that fell through
	StoreMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_store_misses_total",
			Help: "Total number of durable store misses",
		},
	)

	// OverrideHits tracks resolutions short-circuited by a user override
	OverrideHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_override_hits_total",
			Help: "Total number of resolutions answered by a user override",
		},
	)

	// ProviderCalls tracks remote classifier calls per provider
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsift_provider_calls_total",
			Help: "Total number of provider calls",
		},
		[]string{"provider"},
	)

	// ProviderErrors tracks remote classifier failures per provider
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsift_provider_errors_total",
			Help: "Total number of provider errors",
		},
		[]string{"provider", "reason"},
	)

	// FallbackUsed tracks resolutions that ended at the rule classifier
	FallbackUsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsift_fallback_total",
			Help: "Total number of resolutions answered by the rule-based fallback",
		},
	)

	// ClassifyLatency tracks end-to-end resolution latency
	ClassifyLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailsift_classify_latency_seconds",
			Help:    "Classification resolution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
