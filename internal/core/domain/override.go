package domain

import "time"

// OverrideRetention is the minimum age before an override may be pruned.
const OverrideRetention = 30 * 24 * time.Hour

// Override is a manual classification pinned by a user. It outranks every
// automated source for its (item, user) pair until deleted or pruned.
type Override struct {
	ItemID    string            `json:"item_id"`
	UserID    string            `json:"user_id"`
	Category  Category          `json:"category"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Result materializes the override as a classification result.
func (o Override) Result() Result {
	r := Result{
		Category:   o.Category,
		Priority:   PriorityMedium,
		Sentiment:  SentimentNeutral,
		Topics:     []string{},
		Summary:    "Manually classified as " + string(o.Category),
		Confidence: 1.0,
		Source:     SourceOverride,
		Timestamp:  time.Now().UTC(),
	}
	r.Normalize()
	return r
}

type EventType string

const (
	EventTypeCategoryOverride EventType = "category_override"
)

// OverrideEvent is published whenever a user pins or replaces an override.
// Downstream consumers (e.g. training pipelines) subscribe to these.
type OverrideEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Override  Override  `json:"override"`
	EmittedAt time.Time `json:"emitted_at"`
}
