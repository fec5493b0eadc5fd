package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fathom-agency/recap/internal/analyzer"
	"github.com/fathom-agency/recap/internal/conversation"
	"github.com/fathom-agency/recap/internal/events"
	"github.com/fathom-agency/recap/internal/export"
	"github.com/fathom-agency/recap/internal/llm"
	"github.com/fathom-agency/recap/internal/sharepage"
	"github.com/fathom-agency/recap/internal/store"
)

// Share pages get a hard deadline; on timeout the request fails rather than
// hanging on a slow page load.
const shareFetchTimeout = 60 * time.Second

type parseRequest struct {
	Input string `json:"input"`
}

type parseResponse struct {
	conversation.ParsedConversation
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Input == "" {
		respondError(w, http.StatusBadRequest, "input is required")
		return
	}

	conv := conversation.Parse(req.Input)

	resp := parseResponse{ParsedConversation: conv}
	if len(conv.Messages) == 0 {
		resp.Warning = "no messages found"
	}

	s.publishEvent(events.SubjectParsed, events.ConversationEvent{
		ID:       conv.ID.String(),
		Title:    conv.Title,
		Messages: len(conv.Messages),
	})

	respondJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Messages []conversation.Message `json:"messages"`
	Provider string                 `json:"provider"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Provider == "" {
		req.Provider = llm.ProviderClaude
	}
	if req.Provider != llm.ProviderClaude && req.Provider != llm.ProviderOpenAI {
		respondError(w, http.StatusBadRequest, "valid provider (claude or openai) is required")
		return
	}
	if len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "messages array is required")
		return
	}

	apiKey := r.Header.Get("x-api-key")
	if apiKey == "" {
		apiKey = s.defaultKeys[req.Provider]
	}
	if apiKey == "" {
		respondError(w, http.StatusUnauthorized, "API key is required. Please configure your API key.")
		return
	}

	client, err := s.backends(req.Provider, apiKey)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), client, req.Messages)
	if err != nil {
		s.respondAnalysisError(w, err)
		return
	}

	s.publishEvent(events.SubjectAnalyzed, events.ConversationEvent{
		Messages: len(req.Messages),
		Provider: req.Provider,
	})

	respondJSON(w, http.StatusOK, analysis)
}

// respondAnalysisError maps the error taxonomy onto status codes: bad
// credentials are client-correctable, everything else on this path is an
// upstream failure.
func (s *Server) respondAnalysisError(w http.ResponseWriter, err error) {
	var authErr *llm.AuthError
	if errors.As(err, &authErr) {
		respondError(w, http.StatusUnauthorized, "Invalid API key. Please check your settings.")
		return
	}

	var unavailErr *llm.UnavailableError
	if errors.As(err, &unavailErr) {
		respondError(w, http.StatusBadGateway, "analysis backend unavailable: "+unavailErr.Error())
		return
	}

	var exErr *analyzer.ExtractionError
	var schemaErr *analyzer.SchemaError
	if errors.As(err, &exErr) || errors.As(err, &schemaErr) {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
}

type shareRequest struct {
	URL string `json:"url"`
}

type shareResponse struct {
	Title    string                 `json:"title"`
	Messages []conversation.Message `json:"messages"`
	Source   string                 `json:"source"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if !sharepage.ValidShareURL(req.URL) {
		respondError(w, http.StatusBadRequest, "invalid share URL, expected https://chatgpt.com/share/...")
		return
	}
	if s.renderer == nil {
		respondError(w, http.StatusServiceUnavailable, "share fetching is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), shareFetchTimeout)
	defer cancel()

	data, err := s.renderer.Render(ctx, req.URL)
	if err != nil {
		s.logger.Error("share page render failed", "url", req.URL, "error", err)
		respondError(w, http.StatusBadGateway, "failed to fetch share link: "+err.Error())
		return
	}

	title, msgs, err := sharepage.Extract(data)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity,
			"could not extract conversation from share page; it may require authentication or use a different format")
		return
	}

	respondJSON(w, http.StatusOK, shareResponse{Title: title, Messages: msgs, Source: req.URL})
}

type createConversationRequest struct {
	Title      string                         `json:"title"`
	RawInput   string                         `json:"rawInput"`
	Messages   []conversation.Message         `json:"messages"`
	Analysis   *analyzer.ConversationAnalysis `json:"analysis"`
	AIProvider string                         `json:"aiProvider"`
}

func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RawInput == "" || len(req.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "rawInput and messages are required")
		return
	}

	title := req.Title
	if title == "" {
		title = conversation.DeriveTitle(req.Messages)
	}

	c := &store.Conversation{
		ID:         uuid.New(),
		Title:      title,
		RawInput:   req.RawInput,
		Messages:   req.Messages,
		Analysis:   req.Analysis,
		AIProvider: req.AIProvider,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.db.SaveConversation(r.Context(), c); err != nil {
		s.logger.Error("failed to save conversation", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	items, err := s.db.ListConversations(r.Context())
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	if items == nil {
		items = []store.Summary{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	c, err := s.db.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load conversation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

type patchConversationRequest struct {
	Analysis   *analyzer.ConversationAnalysis `json:"analysis"`
	AIProvider string                         `json:"aiProvider"`
}

func (s *Server) patchConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req patchConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Analysis == nil {
		respondError(w, http.StatusBadRequest, "analysis is required")
		return
	}

	err := s.db.AttachAnalysis(r.Context(), id, req.Analysis, req.AIProvider)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to update analysis", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update conversation")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	err := s.db.DeleteConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete conversation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	c, err := s.db.GetConversation(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load conversation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	title := c.Title
	if title == "" {
		title = conversation.DefaultTitle
	}

	md := export.ToMarkdown(title, c.Messages, c.Analysis)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(title)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) publishEvent(subject string, event events.ConversationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, event); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
