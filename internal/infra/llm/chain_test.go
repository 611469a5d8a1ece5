package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/mailsift/internal/core/config"
	"github.com/vietddude/mailsift/internal/core/domain"
)

func openaiReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func nativeReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": content, "done": true})
	}
}

func providerCfg(name, baseURL string, wire config.WireFormat, priority int, enabled bool) config.ProviderConfig {
	path := "/v1/chat/completions"
	if wire == config.WireFormatNative {
		path = "/api/generate"
	}
	return config.ProviderConfig{
		Name:         name,
		BaseURL:      baseURL,
		Model:        "test-model",
		EndpointPath: path,
		WireFormat:   wire,
		TimeoutMs:    2000,
		Priority:     priority,
		Enabled:      enabled,
	}
}

func newTestChain(t *testing.T, cfgs []config.ProviderConfig, threshold float64) *Chain {
	t.Helper()
	chain, err := NewChain(cfgs, threshold, slog.Default())
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}
	chain.SetRetryDelay(10 * time.Millisecond)
	return chain
}

var testItem = domain.Item{
	ExternalID: "msg-1",
	Sender:     "alice@corp.com",
	Subject:    "Budget review",
	Body:       "Please look at the attached budget.",
}

const goodJSON = `{"category":"work","priority":"high","sentiment":"neutral",` +
	`"topics":["budget"],"action_required":true,"summary":"Budget review requested","confidence":0.9}`

func TestChainOpenAIAdapter(t *testing.T) {
	srv := httptest.NewServer(openaiReply(t, goodJSON))
	defer srv.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("primary", srv.URL, config.WireFormatOpenAI, 1, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Category != domain.CategoryWork {
		t.Errorf("category = %s, want work", result.Category)
	}
	if result.Source != "provider:primary" {
		t.Errorf("source = %s, want provider:primary", result.Source)
	}
}

func TestChainNativeAdapter(t *testing.T) {
	srv := httptest.NewServer(nativeReply(t, goodJSON))
	defer srv.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("local", srv.URL, config.WireFormatNative, 1, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Source != "provider:local" {
		t.Errorf("source = %s, want provider:local", result.Source)
	}
}

func TestChainPriorityOrder(t *testing.T) {
	lowPrio := httptest.NewServer(openaiReply(t, goodJSON))
	defer lowPrio.Close()
	highPrio := httptest.NewServer(openaiReply(t, goodJSON))
	defer highPrio.Close()

	// "second" has the lower priority value, so it must be tried first
	// even though it is listed last.
	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("first", lowPrio.URL, config.WireFormatOpenAI, 5, true),
		providerCfg("second", highPrio.URL, config.WireFormatOpenAI, 1, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Source != "provider:second" {
		t.Errorf("source = %s, want provider:second (ascending priority)", result.Source)
	}
}

func TestChainSkipsDisabled(t *testing.T) {
	disabled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("disabled provider must never be called")
	}))
	defer disabled.Close()
	enabled := httptest.NewServer(openaiReply(t, goodJSON))
	defer enabled.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("off", disabled.URL, config.WireFormatOpenAI, 1, false),
		providerCfg("on", enabled.URL, config.WireFormatOpenAI, 2, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Source != "provider:on" {
		t.Errorf("source = %s, want provider:on", result.Source)
	}
}

func TestChainRetriesOnceThenFailsOver(t *testing.T) {
	var calls atomic.Int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	backup := httptest.NewServer(openaiReply(t, goodJSON))
	defer backup.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("flaky", failing.URL, config.WireFormatOpenAI, 1, true),
		providerCfg("backup", backup.URL, config.WireFormatOpenAI, 2, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("failing provider called %d times, want 2 (one retry)", got)
	}
	if result.Source != "provider:backup" {
		t.Errorf("source = %s, want provider:backup", result.Source)
	}
}

func TestChainLowConfidenceContinues(t *testing.T) {
	lowConf := httptest.NewServer(openaiReply(t,
		`{"category":"other","priority":"low","confidence":0.2}`))
	defer lowConf.Close()
	highConf := httptest.NewServer(openaiReply(t, goodJSON))
	defer highConf.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("unsure", lowConf.URL, config.WireFormatOpenAI, 1, true),
		providerCfg("sure", highConf.URL, config.WireFormatOpenAI, 2, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Source != "provider:sure" {
		t.Errorf("source = %s, want provider:sure (low confidence must not short-circuit)", result.Source)
	}
}

func TestChainAllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("down", failing.URL, config.WireFormatOpenAI, 1, true),
	}, 0.75)

	if _, err := chain.Classify(context.Background(), testItem); err == nil {
		t.Error("expected error when every provider fails")
	}
}

func TestChainNoEnabledProviders(t *testing.T) {
	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("off", "http://localhost:1", config.WireFormatOpenAI, 1, false),
	}, 0.75)

	if _, err := chain.Classify(context.Background(), testItem); err == nil {
		t.Error("expected error when no provider is enabled")
	}
}

func TestChainToggleAndPriority(t *testing.T) {
	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("a", "http://localhost:1", config.WireFormatOpenAI, 1, true),
		providerCfg("b", "http://localhost:1", config.WireFormatOpenAI, 2, true),
	}, 0.75)

	if err := chain.Toggle("a", false); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if err := chain.SetPriority("b", 0); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	if err := chain.Toggle("missing", true); err == nil {
		t.Error("expected error toggling unknown provider")
	}

	snap := chain.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d providers, want 2", len(snap))
	}
	if snap[0].Name != "b" {
		t.Errorf("first provider = %s, want b after reprioritization", snap[0].Name)
	}
	for _, p := range snap {
		if p.Name == "a" && p.Enabled {
			t.Error("provider a should be disabled")
		}
	}
}

func TestChainMalformedResponseContinues(t *testing.T) {
	garbage := httptest.NewServer(openaiReply(t, "I am sorry, I cannot help with that."))
	defer garbage.Close()
	good := httptest.NewServer(openaiReply(t, goodJSON))
	defer good.Close()

	chain := newTestChain(t, []config.ProviderConfig{
		providerCfg("garbage", garbage.URL, config.WireFormatOpenAI, 1, true),
		providerCfg("good", good.URL, config.WireFormatOpenAI, 2, true),
	}, 0.75)

	result, err := chain.Classify(context.Background(), testItem)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Source != "provider:good" {
		t.Errorf("source = %s, want provider:good", result.Source)
	}
}
