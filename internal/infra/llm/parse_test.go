package llm

import (
	"testing"

	"github.com/vietddude/mailsift/internal/core/domain"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		found bool
	}{
		{
			name:  "bare object",
			raw:   `{"category":"work"}`,
			want:  `{"category":"work"}`,
			found: true,
		},
		{
			name:  "object wrapped in prose",
			raw:   "Sure! Here is the classification:\n{\"category\":\"spam\"}\nLet me know if you need more.",
			want:  `{"category":"spam"}`,
			found: true,
		},
		{
			name:  "markdown fence",
			raw:   "```json\n{\"category\":\"work\",\"priority\":\"high\"}\n```",
			want:  `{"category":"work","priority":"high"}`,
			found: true,
		},
		{
			name:  "nested object",
			raw:   `prefix {"a":{"b":1},"c":2} suffix`,
			want:  `{"a":{"b":1},"c":2}`,
			found: true,
		},
		{
			name:  "braces inside string",
			raw:   `{"summary":"uses { and } chars","category":"other"}`,
			want:  `{"summary":"uses { and } chars","category":"other"}`,
			found: true,
		},
		{
			name:  "escaped quote inside string",
			raw:   `{"summary":"she said \"hi\"","category":"personal"}`,
			want:  `{"summary":"she said \"hi\"","category":"personal"}`,
			found: true,
		},
		{
			name:  "no object",
			raw:   "I cannot classify this email.",
			found: false,
		},
		{
			name:  "unbalanced",
			raw:   `{"category":"work"`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractJSON(tt.raw)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResult(t *testing.T) {
	raw := `{"category":"work","priority":"high","sentiment":"negative",` +
		`"topics":["deadline","project"],"action_required":true,` +
		`"summary":"Project deadline moved up","confidence":0.92}`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult failed: %v", err)
	}

	if result.Category != domain.CategoryWork {
		t.Errorf("category = %s, want work", result.Category)
	}
	if result.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s, want high", result.Priority)
	}
	if result.Sentiment != domain.SentimentNegative {
		t.Errorf("sentiment = %s, want negative", result.Sentiment)
	}
	if !result.ActionRequired {
		t.Error("actionRequired = false, want true")
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %f, want 0.92", result.Confidence)
	}
}

func TestParseResultDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty object", `{}`},
		{"unknown enum values", `{"category":"banana","priority":"sometime","sentiment":"meh"}`},
		{"null topics", `{"category":"work","topics":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResult(tt.raw)
			if err != nil {
				t.Fatalf("ParseResult failed: %v", err)
			}
			if !domain.ValidCategory(result.Category) {
				t.Errorf("category %q not substituted with a valid default", result.Category)
			}
			if !domain.ValidPriority(result.Priority) {
				t.Errorf("priority %q not substituted with a valid default", result.Priority)
			}
			if !domain.ValidSentiment(result.Sentiment) {
				t.Errorf("sentiment %q not substituted with a valid default", result.Sentiment)
			}
			if result.Topics == nil {
				t.Error("topics must never be nil")
			}
			if result.Summary == "" {
				t.Error("summary must never be empty")
			}
		})
	}
}

func TestParseResultClampsFields(t *testing.T) {
	raw := `{"category":"work","confidence":1.7,"topics":["a","b","c","d","e"]}`

	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("ParseResult failed: %v", err)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %f, want clamped to 1.0", result.Confidence)
	}
	if len(result.Topics) != domain.MaxTopics {
		t.Errorf("topics truncated to %d, want %d", len(result.Topics), domain.MaxTopics)
	}
}

func TestParseResultNoJSON(t *testing.T) {
	if _, err := ParseResult("complete gibberish"); err == nil {
		t.Error("expected error for output without JSON")
	}
}
