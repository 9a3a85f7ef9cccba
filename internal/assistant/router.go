package assistant

import (
	"strings"

	"assistbot/internal/domain"
)

// todoPrefixes route a text message to the todo handler when the lower-cased,
// trimmed text starts with one of them. Matching is by prefix, so "showcase"
// routes to todo and gets the unknown-command reply there.
var todoPrefixes = []string{"add", "todo", "list", "show", "remove", "delete"}

// Classify picks the intent for msg and returns the payload its handler needs:
// the first media URL for images, the message text otherwise. It has no side effects.
func Classify(msg domain.InboundMessage) (domain.Intent, string) {
	if msg.MediaCount > 0 {
		return domain.IntentImage, msg.MediaURL
	}

	lowered := strings.ToLower(strings.TrimSpace(msg.Text))
	for _, p := range todoPrefixes {
		if strings.HasPrefix(lowered, p) {
			return domain.IntentTodo, msg.Text
		}
	}
	return domain.IntentQuestion, msg.Text
}
