package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/fathom-agency/recap/internal/conversation"
	"github.com/fathom-agency/recap/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient implements llm.Client and records the prompt it received.
type fakeClient struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func makeMessages(n int) []conversation.Message {
	msgs := make([]conversation.Message, n)
	for i := range msgs {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		msgs[i] = conversation.Message{Role: role, Content: fmt.Sprintf("message number %d", i)}
	}
	return msgs
}

func TestAnalyze_Success(t *testing.T) {
	client := &fakeClient{reply: validAnalysisJSON}
	a := New(discardLogger())

	analysis, err := a.Analyze(context.Background(), client, makeMessages(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analysis.Topics) != 1 {
		t.Errorf("topics = %+v", analysis.Topics)
	}
	if !strings.Contains(client.prompt, "[0] user: message number 0") {
		t.Errorf("prompt missing rendered message:\n%s", client.prompt)
	}
	if !strings.HasPrefix(client.prompt, "You are a JSON-only response bot.") {
		t.Error("prompt missing instruction preamble")
	}
}

func TestAnalyze_EmptyConversation(t *testing.T) {
	a := New(discardLogger())
	_, err := a.Analyze(context.Background(), &fakeClient{reply: validAnalysisJSON}, nil)
	if !errors.Is(err, ErrNoMessages) {
		t.Fatalf("expected ErrNoMessages, got %v", err)
	}
}

func TestAnalyze_BackendErrorPropagatesTyped(t *testing.T) {
	authErr := &llm.AuthError{Provider: llm.ProviderClaude, Detail: "bad key"}
	a := New(discardLogger())

	_, err := a.Analyze(context.Background(), &fakeClient{err: authErr}, makeMessages(2))
	var gotAuth *llm.AuthError
	if !errors.As(err, &gotAuth) {
		t.Fatalf("expected wrapped AuthError, got %v", err)
	}
}

func TestAnalyze_UnparseableReply(t *testing.T) {
	a := New(discardLogger())
	_, err := a.Analyze(context.Background(), &fakeClient{reply: "no json whatsoever"}, makeMessages(2))
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestBuildPrompt_NoTruncationAtFifty(t *testing.T) {
	prompt := BuildPrompt(makeMessages(50))
	for i := 0; i < 50; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("[%d] ", i)) {
			t.Errorf("message %d missing from untruncated prompt", i)
		}
	}
}

func TestBuildPrompt_TruncatesKeepingOriginalIndices(t *testing.T) {
	prompt := BuildPrompt(makeMessages(80))

	for i := 0; i <= 24; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("[%d] ", i)) {
			t.Errorf("head message %d missing", i)
		}
	}
	for i := 55; i <= 79; i++ {
		if !strings.Contains(prompt, fmt.Sprintf("[%d] ", i)) {
			t.Errorf("tail message %d missing", i)
		}
	}
	for i := 25; i <= 54; i++ {
		if strings.Contains(prompt, fmt.Sprintf("[%d] ", i)) {
			t.Errorf("middle message %d should have been dropped", i)
		}
	}

	// Count rendered lines: exactly 25 + 25.
	count := len(regexp.MustCompile(`(?m)^\[\d+\] `).FindAllString(prompt, -1))
	if count != 50 {
		t.Errorf("expected 50 rendered messages, got %d", count)
	}
}

func TestBuildPrompt_ClampsLongContentRuneSafe(t *testing.T) {
	long := strings.Repeat("ü", 2500)
	prompt := BuildPrompt([]conversation.Message{{Role: conversation.RoleUser, Content: long}})

	rendered := strings.TrimPrefix(prompt, analysisPrompt)
	want := "[0] user: " + strings.Repeat("ü", 2000)
	if rendered != want {
		t.Errorf("content clamp wrong: got %d bytes, want %d", len(rendered), len(want))
	}
}

func TestBuildPrompt_MessagesJoinedWithBlankLine(t *testing.T) {
	prompt := BuildPrompt(makeMessages(2))
	if !strings.Contains(prompt, "message number 0\n\n[1] assistant:") {
		t.Errorf("messages not blank-line separated:\n%s", prompt)
	}
}
