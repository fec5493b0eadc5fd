package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fathom-agency/recap/internal/conversation"
	"github.com/fathom-agency/recap/internal/llm"
)

const (
	// Conversations longer than maxPromptMessages keep the first keepHead and
	// last keepTail messages, dropping the middle. Opening context and the
	// most recent exchange matter most.
	maxPromptMessages = 50
	keepHead          = 25
	keepTail          = 25

	// Per-message content clamp, in runes.
	maxContentRunes = 2000
)

// ErrNoMessages is returned when analysis is requested for an empty
// conversation.
var ErrNoMessages = errors.New("no messages to analyze")

type Analyzer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze renders the conversation into the analysis prompt, invokes the
// backend, and recovers a validated analysis from the reply. Backend errors
// propagate typed (llm.AuthError, llm.UnavailableError) so the boundary can
// map them.
func (a *Analyzer) Analyze(ctx context.Context, client llm.Client, messages []conversation.Message) (*ConversationAnalysis, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	prompt := BuildPrompt(messages)

	a.logger.Info("requesting analysis",
		"messages", len(messages),
		"prompt_len", len(prompt),
	)

	raw, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("backend completion: %w", err)
	}

	analysis, err := ExtractAnalysis(raw)
	if err != nil {
		a.logger.Error("failed to recover analysis from response",
			"error", err,
			"response_len", len(raw),
		)
		return nil, err
	}

	a.logger.Info("analysis complete",
		"topics", len(analysis.Topics),
		"snippets", len(analysis.CodeSnippets),
		"outline", len(analysis.Summary.Outline),
	)

	return analysis, nil
}

// BuildPrompt renders messages as "[index] role: content" lines appended to
// the instruction preamble. Indices are the original conversation indices
// even under truncation, since they are what the returned analysis indexes
// into.
func BuildPrompt(messages []conversation.Message) string {
	type indexed struct {
		idx int
		msg conversation.Message
	}

	var picked []indexed
	if len(messages) > maxPromptMessages {
		for i := 0; i < keepHead; i++ {
			picked = append(picked, indexed{i, messages[i]})
		}
		for i := len(messages) - keepTail; i < len(messages); i++ {
			picked = append(picked, indexed{i, messages[i]})
		}
	} else {
		for i, m := range messages {
			picked = append(picked, indexed{i, m})
		}
	}

	lines := make([]string, len(picked))
	for n, it := range picked {
		lines[n] = fmt.Sprintf("[%d] %s: %s", it.idx, it.msg.Role, clampRunes(it.msg.Content, maxContentRunes))
	}

	return analysisPrompt + strings.Join(lines, "\n\n")
}
