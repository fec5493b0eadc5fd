// Package sharepage defines the contract with the external page-rendering
// collaborator and validates what it hands back. The browser mechanics live
// behind the Renderer interface and are not implemented here.
package sharepage

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/fathom-agency/recap/internal/conversation"
)

// DefaultTitle is used when the rendered page provides no usable title.
const DefaultTitle = "Imported Conversation"

// ErrExtractionFailed means an explicit fetch was requested and produced no
// usable messages. Distinct from the dispatcher's always-succeeds contract.
var ErrExtractionFailed = errors.New("could not extract conversation from share page")

// Candidate is one message element scraped from a rendered share page.
type Candidate struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PageData is everything a Renderer extracts from a loaded page.
type PageData struct {
	Title    string      `json:"title"`
	Messages []Candidate `json:"messages"`
}

// Renderer loads a share URL and returns the raw candidates found on the
// page. Implementations own page-load timeouts below the caller's deadline.
type Renderer interface {
	Render(ctx context.Context, url string) (PageData, error)
}

var shareURLRe = regexp.MustCompile(`^https?://(chat\.openai\.com|chatgpt\.com)/share/[\w-]+$`)

// ValidShareURL reports whether url looks like a conversation share link.
func ValidShareURL(url string) bool {
	return shareURLRe.MatchString(url)
}

// Extract validates and shapes rendered page data. Candidates whose role is
// not exactly user/assistant, or whose content is blank after trimming, are
// discarded. An empty result after filtering is ErrExtractionFailed.
func Extract(data PageData) (string, []conversation.Message, error) {
	var msgs []conversation.Message
	for _, c := range data.Messages {
		if c.Role != conversation.RoleUser && c.Role != conversation.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		msgs = append(msgs, conversation.Message{Role: c.Role, Content: content})
	}

	if len(msgs) == 0 {
		return "", nil, ErrExtractionFailed
	}

	title := strings.TrimSpace(data.Title)
	if title == "" {
		title = DefaultTitle
	}
	return title, msgs, nil
}
