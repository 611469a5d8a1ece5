package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxBodyExcerpt bounds how much of an email body is used for classification.
const MaxBodyExcerpt = 500

// Item represents an incoming email to classify.
type Item struct {
	ExternalID           string    `json:"external_id"`
	Sender               string    `json:"sender"`
	Subject              string    `json:"subject"`
	Body                 string    `json:"body"`
	Date                 time.Time `json:"date"`
	PreviouslyClassified bool      `json:"previously_classified"`
}

// ContentHash returns the stable identity of an item: a hex SHA-256 over
// (external id, subject, sender). Incidental fields like flags or body edits
// do not change the hash, so re-deliveries of the same logical item map to
// the same storage row.
func (i Item) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(i.ExternalID))
	h.Write([]byte{'|'})
	h.Write([]byte(i.Subject))
	h.Write([]byte{'|'})
	h.Write([]byte(i.Sender))
	return hex.EncodeToString(h.Sum(nil))
}

// BodyExcerpt returns the body truncated to MaxBodyExcerpt runes.
func (i Item) BodyExcerpt() string {
	runes := []rune(i.Body)
	if len(runes) <= MaxBodyExcerpt {
		return i.Body
	}
	return string(runes[:MaxBodyExcerpt])
}
