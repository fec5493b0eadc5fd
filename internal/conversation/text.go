package conversation

import "strings"

// Role-prefix tokens recognised at the start of a trimmed line. The two sets
// are disjoint; if they ever overlap, user prefixes are checked first and win.
var (
	userPrefixes      = []string{"user:", "you:", "human:", "me:"}
	assistantPrefixes = []string{"chatgpt:", "assistant:", "ai:", "gpt:", "claude:"}
)

// ParseText parses a role-prefixed plain-text transcript into ordered
// messages. Lines before the first recognised prefix are discarded; lines
// inside a message are kept verbatim and joined with newlines, trimmed only
// when the message is flushed. Input with no recognised prefix yields an
// empty slice, which is a valid result the caller must handle.
func ParseText(text string) []Message {
	var (
		messages []Message
		role     string
		buf      []string
	)

	flush := func() {
		if role == "" {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n"))
		if content != "" {
			messages = append(messages, Message{Role: role, Content: content})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))

		if p := matchPrefix(lower, userPrefixes); p != "" {
			flush()
			role = RoleUser
			buf = []string{afterPrefix(line, p)}
			continue
		}
		if p := matchPrefix(lower, assistantPrefixes); p != "" {
			flush()
			role = RoleAssistant
			buf = []string{afterPrefix(line, p)}
			continue
		}
		if role != "" {
			buf = append(buf, line)
		}
	}
	flush()

	return messages
}

func matchPrefix(lowerTrimmed string, prefixes []string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(lowerTrimmed, p) {
			return p
		}
	}
	return ""
}

// afterPrefix returns the remainder of a prefix line. Prefix tokens are ASCII,
// so byte offsets into the trimmed line are safe.
func afterPrefix(line, prefix string) string {
	trimmed := strings.TrimSpace(line)
	return strings.TrimSpace(trimmed[len(prefix):])
}
