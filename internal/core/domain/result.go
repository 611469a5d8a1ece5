package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryWork        Category = "work"
	CategoryPersonal    Category = "personal"
	CategoryNewsletter  Category = "newsletter"
	CategoryPromotional Category = "promotional"
	CategorySpam        Category = "spam"
	CategorySocial      Category = "social"
	CategoryFinance     Category = "finance"
	CategoryTravel      Category = "travel"
	CategorySupport     Category = "support"
	CategoryOther       Category = "other"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Result sources. Cached results keep the source they were resolved with,
// the cache itself is never a source.
const (
	SourceOverride = "override"
	SourceStore    = "store"
	SourceRule     = "rule"

	// ProviderSourcePrefix prefixes the provider name, e.g. "provider:openai".
	ProviderSourcePrefix = "provider:"
)

// MaxTopics caps the number of topics attached to a result.
const MaxTopics = 3

// MaxSummaryWords caps summary length.
const MaxSummaryWords = 20

// Result is a classification outcome. Exactly one Result is produced per
// resolution, and every field except Source/Confidence is always populated.
type Result struct {
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	Sentiment      Sentiment `json:"sentiment"`
	Topics         []string  `json:"topics"`
	ActionRequired bool      `json:"action_required"`
	Summary        string    `json:"summary"`
	Confidence     float64   `json:"confidence"`
	Source         string    `json:"source"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProviderSource builds the source tag for a named provider.
func ProviderSource(name string) string {
	return ProviderSourcePrefix + name
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryNewsletter, CategoryPromotional,
		CategorySpam, CategorySocial, CategoryFinance, CategoryTravel,
		CategorySupport, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ValidSentiment reports whether s is a known sentiment.
func ValidSentiment(s Sentiment) bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// Normalize fills missing or invalid fields with documented defaults and
// clamps bounded fields so a Result handed to callers is always complete.
func (r *Result) Normalize() {
	if !ValidCategory(r.Category) {
		r.Category = CategoryOther
	}
	if !ValidPriority(r.Priority) {
		r.Priority = PriorityMedium
	}
	if !ValidSentiment(r.Sentiment) {
		r.Sentiment = SentimentNeutral
	}
	if r.Topics == nil {
		r.Topics = []string{}
	}
	if len(r.Topics) > MaxTopics {
		r.Topics = r.Topics[:MaxTopics]
	}
	r.Summary = TruncateWords(r.Summary, MaxSummaryWords)
	if r.Summary == "" {
		r.Summary = "No summary available"
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
}

// TruncateWords cuts s to at most n words.
func TruncateWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return strings.TrimSpace(s)
	}
	return strings.Join(fields[:n], " ")
}
