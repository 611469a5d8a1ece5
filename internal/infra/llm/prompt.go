package llm

import (
	"fmt"

	"github.com/vietddude/mailsift/internal/core/domain"
)

const systemInstruction = `You are an email classification engine. ` +
	`Respond with a single JSON object and nothing else. Schema: ` +
	`{"category": one of [work, personal, newsletter, promotional, spam, social, finance, travel, support, other], ` +
	`"priority": one of [high, medium, low], ` +
	`"sentiment": one of [positive, neutral, negative], ` +
	`"topics": up to 3 short strings, ` +
	`"action_required": boolean, ` +
	`"summary": at most 20 words, ` +
	`"confidence": number between 0 and 1}`

// BuildPrompt renders the classification prompt for an item. The body is
// bounded so prompts stay within provider token limits.
func BuildPrompt(item domain.Item) string {
	return fmt.Sprintf(
		"Classify this email.\nFrom: %s\nSubject: %s\nDate: %s\nBody:\n%s",
		item.Sender,
		item.Subject,
		item.Date.Format("2006-01-02 15:04"),
		item.BodyExcerpt(),
	)
}
