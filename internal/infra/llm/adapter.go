// Package llm implements the remote classifier chain.
//
// This package contains:
//   - Adapter interface: one implementation per wire format
//   - openaiAdapter: OpenAI-compatible chat completion endpoints
//   - nativeAdapter: local inference servers (ollama-style envelope)
//   - Chain: priority-ordered failover across configured providers
//   - response parsing: balanced-JSON extraction with field defaults
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vietddude/mailsift/internal/core/config"
)

// Adapter is the uniform contract for calling a remote classifier: build the
// wire-format-specific request, return the raw completion text.
type Adapter interface {
	// Name returns the provider identifier
	Name() string

	// Call sends the prompt and returns the raw model output
	Call(ctx context.Context, prompt string) (string, error)
}

// NewAdapter selects the adapter implementation from provider config.
func NewAdapter(cfg config.ProviderConfig) (Adapter, error) {
	switch cfg.WireFormat {
	case config.WireFormatOpenAI:
		return newOpenAIAdapter(cfg), nil
	case config.WireFormatNative:
		return newNativeAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown wire format %q for provider %s", cfg.WireFormat, cfg.Name)
	}
}

func newHTTPClient(timeoutMs int) *http.Client {
	return &http.Client{
		Timeout: time.Duration(timeoutMs) * time.Millisecond,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
