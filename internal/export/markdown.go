// Package export renders a conversation and its analysis as a markdown
// document. Rendering is a pure function of its inputs: identical input
// yields byte-identical output.
package export

import (
	"fmt"
	"strings"

	"github.com/fathom-agency/recap/internal/analyzer"
	"github.com/fathom-agency/recap/internal/conversation"
)

const previewMaxRunes = 100

// ToMarkdown serialises (title, messages, analysis) in fixed section order:
// title, TL;DR, summary outline, topics, code snippets, full conversation.
// Message indices that fall outside the message list are skipped silently;
// index drift is defended against, not treated as fatal. A nil analysis
// renders just the title and the conversation.
func ToMarkdown(title string, messages []conversation.Message, analysis *analyzer.ConversationAnalysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)

	if analysis != nil {
		if analysis.Summary.TLDR != "" {
			fmt.Fprintf(&sb, "## TL;DR\n\n%s\n\n", analysis.Summary.TLDR)
		}

		if len(analysis.Summary.Outline) > 0 {
			sb.WriteString("## Summary\n\n")
			writeOutline(&sb, analysis.Summary.Outline)
			sb.WriteString("\n")
		}

		if len(analysis.Topics) > 0 {
			sb.WriteString("## Topics\n\n")
			for _, topic := range analysis.Topics {
				fmt.Fprintf(&sb, "### %s\n\n%s\n\n", topic.Name, topic.Description)
				sb.WriteString("**Related messages:**\n")
				for _, idx := range topic.MessageIndices {
					if idx < 0 || idx >= len(messages) {
						continue
					}
					msg := messages[idx]
					fmt.Fprintf(&sb, "- [%d] %s: %s\n", idx+1, msg.Role, preview(msg.Content))
				}
				sb.WriteString("\n")
			}
		}

		if len(analysis.CodeSnippets) > 0 {
			sb.WriteString("## Code Snippets\n\n")
			for _, snippet := range analysis.CodeSnippets {
				fmt.Fprintf(&sb, "### %s\n\n", snippet.Context)
				fmt.Fprintf(&sb, "**Language:** %s\n\n", snippet.Language)
				fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", snippet.Language, snippet.Code)
			}
		}
	}

	sb.WriteString("## Full Conversation\n\n")
	for i, msg := range messages {
		label := "**Assistant**"
		if msg.Role == conversation.RoleUser {
			label = "**You**"
		}
		fmt.Fprintf(&sb, "### %d. %s\n\n%s\n\n---\n\n", i+1, label, msg.Content)
	}

	return sb.String()
}

type outlineFrame struct {
	node  *analyzer.OutlineNode
	depth int
}

// writeOutline renders the outline tree with an explicit work-stack. Model
// output controls nesting depth, so recursion is off the table: depths in the
// thousands must not blow the goroutine stack.
func writeOutline(sb *strings.Builder, nodes []analyzer.OutlineNode) {
	stack := make([]outlineFrame, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, outlineFrame{&nodes[i], 0})
	}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fmt.Fprintf(sb, "%s- **%s**: %s\n",
			strings.Repeat("  ", frame.depth), frame.node.Title, frame.node.Description)

		// Push children in reverse so they pop in document order.
		children := frame.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, outlineFrame{&children[i], frame.depth + 1})
		}
	}
}

// preview flattens newlines to spaces for list-item safety and truncates to
// 100 characters with an ellipsis only when truncation occurred.
func preview(content string) string {
	flat := strings.ReplaceAll(content, "\n", " ")
	runes := []rune(flat)
	if len(runes) <= previewMaxRunes {
		return flat
	}
	return string(runes[:previewMaxRunes]) + "..."
}

// Filename sanitises a title into a markdown download name: non-alphanumeric
// runs become single dashes, lower-cased, with a .md suffix.
func Filename(title string) string {
	var b strings.Builder
	lastDash := true // swallow leading dashes
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteRune('-')
			lastDash = true
		}
	}

	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "conversation"
	}
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	return name
}
