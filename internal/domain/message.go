package domain

import "unicode/utf8"

// Role constants for message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn. Insertion order is significant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CloneMessages returns a copy of msgs that can be extended without
// aliasing the caller's backing array. A nil input yields an empty slice.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// LastMessages returns at most n trailing messages.
func LastMessages(msgs []Message, n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// Clip returns the longest prefix of s that is at most n bytes long and
// ends on a rune boundary.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
