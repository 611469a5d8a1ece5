package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/mailsift/internal/core/config"
)

// nativeAdapter speaks the envelope of local inference servers (ollama and
// compatible): a flat prompt field, options nested, and `num_predict`
// instead of max_tokens.
type nativeAdapter struct {
	name        string
	url         string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	httpClient  *http.Client
}

type nativeRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options nativeOptions `json:"options"`
}

type nativeOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type nativeResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func newNativeAdapter(cfg config.ProviderConfig) *nativeAdapter {
	return &nativeAdapter{
		name:        cfg.Name,
		url:         strings.TrimSuffix(cfg.BaseURL, "/") + cfg.EndpointPath,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     time.Duration(cfg.TimeoutMs) * time.Millisecond,
		httpClient:  newHTTPClient(cfg.TimeoutMs),
	}
}

func (a *nativeAdapter) Name() string {
	return a.name
}

// Call sends the prompt to the local server and returns the generated text.
func (a *nativeAdapter) Call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reqBody := nativeRequest{
		Model:  a.model,
		System: systemInstruction,
		Prompt: prompt,
		Stream: false,
		Options: nativeOptions{
			Temperature: a.temperature,
			NumPredict:  a.maxTokens,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var nativeResp nativeResponse
	if err := json.Unmarshal(body, &nativeResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if nativeResp.Response == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return nativeResp.Response, nil
}
