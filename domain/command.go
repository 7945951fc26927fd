package domain

import (
	"strings"
)

// DefaultTriggerPrefix marks a message as a completion request.
const DefaultTriggerPrefix = "gpt:"

// ParsePrompt detects the trigger prefix (case-sensitive) at the very start of
// body and returns the remainder trimmed of surrounding whitespace.
// An empty remainder is reported as no prompt.
func ParsePrompt(body, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return "", false
	}
	prompt := strings.TrimSpace(strings.TrimPrefix(body, prefix))
	if prompt == "" {
		return "", false
	}
	return prompt, true
}
