package conversation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used when no title can be derived from the messages.
const DefaultTitle = "Untitled Conversation"

const titleMaxRunes = 50

// Parse auto-detects the input format and parses it. Valid JSON is handed to
// the export-tree parser; anything else goes through the text parser. Parse
// never fails, the worst case is a conversation with zero messages.
func Parse(input string) ParsedConversation {
	trimmed := strings.TrimSpace(input)

	var conv ParsedConversation
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		conv = ParseExportTree([]byte(trimmed))
	} else {
		conv = ParsedConversation{
			ID:        uuid.New(),
			Messages:  ParseText(input),
			CreatedAt: time.Now().UTC(),
		}
	}

	if conv.Title == "" {
		conv.Title = DeriveTitle(conv.Messages)
	}
	return conv
}

// DeriveTitle builds a title from the first user message, truncated to 50
// characters. The ellipsis is appended only when truncation actually occurred.
func DeriveTitle(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) <= titleMaxRunes {
			return m.Content
		}
		return string(runes[:titleMaxRunes]) + "..."
	}
	return DefaultTitle
}
