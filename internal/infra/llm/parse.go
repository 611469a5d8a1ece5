package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
)

// ExtractJSON returns the first balanced JSON object found in raw text.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSON(raw string) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, c := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString {
				continue
			}
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// providerResult is the loose shape decoded from model output. All fields
// are optional; defaults are substituted afterwards.
type providerResult struct {
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	Sentiment      string   `json:"sentiment"`
	Topics         []string `json:"topics"`
	ActionRequired bool     `json:"action_required"`
	Summary        string   `json:"summary"`
	Confidence     float64  `json:"confidence"`
}

// ParseResult turns raw model output into a normalized result. It fails only
// when no JSON object can be found or decoded at all; missing or invalid
// fields degrade to documented defaults instead.
func ParseResult(raw string) (*domain.Result, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in provider output")
	}

	var pr providerResult
	if err := json.Unmarshal([]byte(obj), &pr); err != nil {
		return nil, fmt.Errorf("decode provider output: %w", err)
	}

	result := &domain.Result{
		Category:       domain.Category(pr.Category),
		Priority:       domain.Priority(pr.Priority),
		Sentiment:      domain.Sentiment(pr.Sentiment),
		Topics:         pr.Topics,
		ActionRequired: pr.ActionRequired,
		Summary:        pr.Summary,
		Confidence:     pr.Confidence,
		Timestamp:      time.Now().UTC(),
	}
	result.Normalize()
	return result, nil
}
