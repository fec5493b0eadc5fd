// Package llm defines the backend-agnostic completion contract. The analyzer
// depends only on this interface so providers can be added without touching
// the extraction logic.
package llm

import (
	"context"
	"fmt"
)

const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Client submits a text prompt and returns the raw text reply. Credentials
// are injected at construction, never read from ambient state.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AuthError means the backend rejected the credential. Callers map this to a
// client-correctable state instead of a generic retry.
type AuthError struct {
	Provider string
	Detail   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected api key: %s", e.Provider, e.Detail)
}

// UnavailableError covers network failures, timeouts, and 5xx-class backend
// responses. Callers may retry with backoff; this package never retries.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
