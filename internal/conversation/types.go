package conversation

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the canonical unit every parser converges on. Downstream
// structures reference messages by their index in the conversation, so order
// must never change after parsing.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601 when known
}

// ParsedConversation is the output of a single parse invocation. It is not
// mutated after creation; the caller owns it for persistence.
type ParsedConversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}
