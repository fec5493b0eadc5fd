package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fathom-agency/recap/internal/analyzer"
	"github.com/fathom-agency/recap/internal/conversation"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// Conversation is a persisted conversation row. Messages and analysis are
// stored as JSONB blobs; the analysis is replaced whole, never patched.
type Conversation struct {
	ID         uuid.UUID                      `json:"id"`
	Title      string                         `json:"title"`
	RawInput   string                         `json:"rawInput,omitempty"`
	Messages   []conversation.Message         `json:"messages"`
	Analysis   *analyzer.ConversationAnalysis `json:"analysis,omitempty"`
	AIProvider string                         `json:"aiProvider,omitempty"`
	CreatedAt  time.Time                      `json:"createdAt"`
	UpdatedAt  time.Time                      `json:"updatedAt"`
}

// Summary is the listing projection: no message bodies, no analysis.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	AIProvider string    `json:"aiProvider,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (s *Store) SaveConversation(ctx context.Context, c *Conversation) error {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	var analysis []byte
	if c.Analysis != nil {
		analysis, err = json.Marshal(c.Analysis)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO conversations (id, title, raw_input, messages, analysis, ai_provider, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		c.ID, c.Title, c.RawInput, messages, analysis, c.AIProvider, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *Store) ListConversations(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, ai_provider, created_at, updated_at
		FROM conversations
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var item Summary
		if err := rows.Scan(&item.ID, &item.Title, &item.AIProvider, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var (
		c        Conversation
		messages []byte
		analysis []byte
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, title, raw_input, messages, analysis, ai_provider, created_at, updated_at
		FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.RawInput, &messages, &analysis, &c.AIProvider, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if len(analysis) > 0 {
		c.Analysis = &analyzer.ConversationAnalysis{}
		if err := json.Unmarshal(analysis, c.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	return &c, nil
}

// AttachAnalysis replaces a conversation's analysis blob and provider tag.
func (s *Store) AttachAnalysis(ctx context.Context, id uuid.UUID, analysis *analyzer.ConversationAnalysis, provider string) error {
	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET analysis = $2, ai_provider = $3, updated_at = now()
		WHERE id = $1`, id, blob, provider)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
