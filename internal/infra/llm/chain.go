package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/mailsift/internal/classify/metrics"
	"github.com/vietddude/mailsift/internal/core/config"
	"github.com/vietddude/mailsift/internal/core/domain"
)

// DefaultRetryDelay is the pause before the single retry of a failed call.
const DefaultRetryDelay = 1 * time.Second

// ErrNoAcceptedResult is returned when every enabled provider failed or none
// met the confidence threshold.
var ErrNoAcceptedResult = fmt.Errorf("no provider produced an accepted result")

// Provider pairs an adapter with its runtime state. Enabled and Priority are
// mutable through the admin surface; changes apply on the next resolution.
type Provider struct {
	cfg     config.ProviderConfig
	adapter Adapter
	limiter *rate.Limiter
}

// ProviderStatus is the admin view of a provider.
type ProviderStatus struct {
	Name        string  `json:"name"`
	Model       string  `json:"model"`
	WireFormat  string  `json:"wire_format"`
	Priority    int     `json:"priority"`
	Enabled     bool    `json:"enabled"`
	TimeoutMs   int     `json:"timeout_ms"`
	Temperature float64 `json:"temperature"`
}

// Chain tries providers strictly in ascending priority among enabled ones.
// The first response that parses and meets the confidence threshold wins
// (strict mode); lower-confidence parses do not short-circuit.
type Chain struct {
	mu         sync.RWMutex
	providers  []*Provider
	threshold  float64
	retryDelay time.Duration
	log        *slog.Logger
}

// NewChain builds a chain from provider configs.
func NewChain(cfgs []config.ProviderConfig, threshold float64, log *slog.Logger) (*Chain, error) {
	c := &Chain{
		threshold:  threshold,
		retryDelay: DefaultRetryDelay,
		log:        log,
	}

	for _, cfg := range cfgs {
		adapter, err := NewAdapter(cfg)
		if err != nil {
			return nil, err
		}
		p := &Provider{cfg: cfg, adapter: adapter}
		if cfg.RequestsPerMinute > 0 {
			p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
		}
		c.providers = append(c.providers, p)
	}
	c.sortLocked()
	return c, nil
}

// SetRetryDelay overrides the fixed retry pause.
func (c *Chain) SetRetryDelay(d time.Duration) {
	c.mu.Lock()
	c.retryDelay = d
	c.mu.Unlock()
}

func (c *Chain) sortLocked() {
	sort.SliceStable(c.providers, func(i, j int) bool {
		return c.providers[i].cfg.Priority < c.providers[j].cfg.Priority
	})
}

// enabled returns the ordered enabled providers at this instant. Later
// toggles do not affect an in-flight resolution.
func (c *Chain) enabled() []*Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if p.cfg.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Classify walks the chain. It returns ErrNoAcceptedResult when every
// enabled provider failed or none met the threshold; the caller falls back
// to the rule classifier.
func (c *Chain) Classify(ctx context.Context, item domain.Item) (*domain.Result, error) {
	providers := c.enabled()
	if len(providers) == 0 {
		return nil, fmt.Errorf("no enabled providers: %w", ErrNoAcceptedResult)
	}

	prompt := BuildPrompt(item)
	c.mu.RLock()
	retryDelay := c.retryDelay
	threshold := c.threshold
	c.mu.RUnlock()

	for _, p := range providers {
		raw, err := c.callWithRetry(ctx, p, prompt, retryDelay)
		if err != nil {
			c.log.Warn("provider failed", "provider", p.adapter.Name(), "error", err)
			metrics.ProviderErrors.WithLabelValues(p.adapter.Name(), "unreachable").Inc()
			continue
		}

		result, err := ParseResult(raw)
		if err != nil {
			c.log.Warn("provider returned unparsable output", "provider", p.adapter.Name(), "error", err)
			metrics.ProviderErrors.WithLabelValues(p.adapter.Name(), "malformed").Inc()
			continue
		}

		if result.Confidence < threshold {
			c.log.Debug("provider result below confidence threshold",
				"provider", p.adapter.Name(),
				"confidence", result.Confidence,
				"threshold", threshold)
			metrics.ProviderErrors.WithLabelValues(p.adapter.Name(), "low_confidence").Inc()
			continue
		}

		result.Source = domain.ProviderSource(p.adapter.Name())
		return result, nil
	}

	return nil, ErrNoAcceptedResult
}

// callWithRetry attempts one call plus exactly one retry after a fixed
// delay. Timeouts are treated the same as network errors.
func (c *Chain) callWithRetry(ctx context.Context, p *Provider, prompt string, retryDelay time.Duration) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		metrics.ProviderCalls.WithLabelValues(p.adapter.Name()).Inc()
		raw, err := p.adapter.Call(ctx, prompt)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Toggle enables or disables a provider. Takes effect on the next
// resolution, never retroactively.
func (c *Chain) Toggle(name string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.providers {
		if p.cfg.Name == name {
			p.cfg.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q", name)
}

// SetPriority reorders a provider. Lower values are tried first.
func (c *Chain) SetPriority(name string, priority int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.providers {
		if p.cfg.Name == name {
			p.cfg.Priority = priority
			c.sortLocked()
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q", name)
}

// Snapshot returns the current provider list in resolution order.
func (c *Chain) Snapshot() []ProviderStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, ProviderStatus{
			Name:        p.cfg.Name,
			Model:       p.cfg.Model,
			WireFormat:  string(p.cfg.WireFormat),
			Priority:    p.cfg.Priority,
			Enabled:     p.cfg.Enabled,
			TimeoutMs:   p.cfg.TimeoutMs,
			Temperature: p.cfg.Temperature,
		})
	}
	return out
}

// Available reports whether at least one provider is enabled.
func (c *Chain) Available() bool {
	return len(c.enabled()) > 0
}
