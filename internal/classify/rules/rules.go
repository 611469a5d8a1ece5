// Package rules implements the deterministic keyword/domain classifier used
// when no remote provider produces an acceptable result. It has no state and
// no I/O.
package rules

import (
	"strings"
	"time"

	"github.com/vietddude/mailsift/internal/core/domain"
)

// DefaultConfidence is returned when no rule matches.
const DefaultConfidence = 0.4

// Rule maps a text predicate to a classification outcome. Rules are
// evaluated in order, first match wins.
type Rule struct {
	Name           string
	Match          func(text, sender string) bool
	Category       domain.Category
	Priority       domain.Priority
	Sentiment      domain.Sentiment
	Confidence     float64
	Topics         []string
	ActionRequired bool
}

func anyKeyword(keywords ...string) func(text, sender string) bool {
	return func(text, _ string) bool {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

func senderContains(fragments ...string) func(text, sender string) bool {
	return func(_, sender string) bool {
		for _, f := range fragments {
			if strings.Contains(sender, f) {
				return true
			}
		}
		return false
	}
}

func defaultRules() []Rule {
	return []Rule{
		{
			Name:       "newsletter",
			Match:      anyKeyword("unsubscribe", "newsletter", "weekly digest", "view in browser"),
			Category:   domain.CategoryNewsletter,
			Priority:   domain.PriorityLow,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.85,
			Topics:     []string{"newsletter"},
		},
		{
			Name:       "newsletter-sender",
			Match:      senderContains("newsletter@", "digest@", "updates@"),
			Category:   domain.CategoryNewsletter,
			Priority:   domain.PriorityLow,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.8,
			Topics:     []string{"newsletter"},
		},
		{
			Name:           "urgent",
			Match:          anyKeyword("urgent", "asap", "action required", "immediately", "deadline today"),
			Category:       domain.CategoryWork,
			Priority:       domain.PriorityHigh,
			Sentiment:      domain.SentimentNeutral,
			Confidence:     0.75,
			Topics:         []string{"urgent"},
			ActionRequired: true,
		},
		{
			Name:       "spam",
			Match:      anyKeyword("you have won", "claim your prize", "viagra", "lottery winner", "wire transfer fee"),
			Category:   domain.CategorySpam,
			Priority:   domain.PriorityLow,
			Sentiment:  domain.SentimentNegative,
			Confidence: 0.9,
			Topics:     []string{"spam"},
		},
		{
			Name:       "promotional",
			Match:      anyKeyword("% off", "discount", "sale ends", "limited time offer", "promo code", "flash sale"),
			Category:   domain.CategoryPromotional,
			Priority:   domain.PriorityLow,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.8,
			Topics:     []string{"promotion"},
		},
		{
			Name:           "finance",
			Match:          anyKeyword("invoice", "payment due", "receipt", "statement available", "billing"),
			Category:       domain.CategoryFinance,
			Priority:       domain.PriorityMedium,
			Sentiment:      domain.SentimentNeutral,
			Confidence:     0.75,
			Topics:         []string{"finance", "billing"},
			ActionRequired: true,
		},
		{
			Name:       "travel",
			Match:      anyKeyword("flight confirmation", "boarding pass", "itinerary", "hotel reservation", "check-in reminder"),
			Category:   domain.CategoryTravel,
			Priority:   domain.PriorityMedium,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.8,
			Topics:     []string{"travel"},
		},
		{
			Name:       "social",
			Match:      senderContains("@facebookmail.com", "@linkedin.com", "@twitter.com", "@instagram.com"),
			Category:   domain.CategorySocial,
			Priority:   domain.PriorityLow,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.85,
			Topics:     []string{"social"},
		},
		{
			Name:           "support",
			Match:          anyKeyword("support ticket", "case number", "your request has been", "help desk"),
			Category:       domain.CategorySupport,
			Priority:       domain.PriorityMedium,
			Sentiment:      domain.SentimentNeutral,
			Confidence:     0.7,
			Topics:         []string{"support"},
			ActionRequired: true,
		},
		{
			Name:       "work",
			Match:      anyKeyword("meeting", "standup", "sprint", "pull request", "code review", "quarterly report"),
			Category:   domain.CategoryWork,
			Priority:   domain.PriorityMedium,
			Sentiment:  domain.SentimentNeutral,
			Confidence: 0.7,
			Topics:     []string{"work"},
		},
	}
}

// Classifier evaluates an ordered rule table over item text.
type Classifier struct {
	rules []Rule
}

// New returns a classifier with the default rule table.
func New() *Classifier {
	return &Classifier{rules: defaultRules()}
}

// NewWithRules returns a classifier with a custom rule table.
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify always returns a result. Evaluation is first-match-wins over
// lowercased sender+subject+body; no match yields a low-confidence default.
func (c *Classifier) Classify(item domain.Item) domain.Result {
	text := strings.ToLower(item.Sender + " " + item.Subject + " " + item.BodyExcerpt())
	sender := strings.ToLower(item.Sender)

	for _, rule := range c.rules {
		if rule.Match(text, sender) {
			r := domain.Result{
				Category:       rule.Category,
				Priority:       rule.Priority,
				Sentiment:      rule.Sentiment,
				Topics:         append([]string(nil), rule.Topics...),
				ActionRequired: rule.ActionRequired,
				Summary:        summarize(item),
				Confidence:     rule.Confidence,
				Source:         domain.SourceRule,
				Timestamp:      time.Now().UTC(),
			}
			r.Normalize()
			return r
		}
	}

	r := domain.Result{
		Category:   domain.CategoryOther,
		Priority:   domain.PriorityMedium,
		Sentiment:  domain.SentimentNeutral,
		Topics:     []string{},
		Summary:    summarize(item),
		Confidence: DefaultConfidence,
		Source:     domain.SourceRule,
		Timestamp:  time.Now().UTC(),
	}
	r.Normalize()
	return r
}

func summarize(item domain.Item) string {
	subject := strings.TrimSpace(item.Subject)
	if subject == "" {
		return "Email from " + item.Sender
	}
	return domain.TruncateWords(subject, domain.MaxSummaryWords)
}
