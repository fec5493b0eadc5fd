package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fathom-agency/recap/internal/analyzer"
	"github.com/fathom-agency/recap/internal/events"
	"github.com/fathom-agency/recap/internal/llm"
	"github.com/fathom-agency/recap/internal/sharepage"
	"github.com/fathom-agency/recap/internal/store"
)

// BackendFactory builds a completion client for a provider name and
// credential. Keys arrive per request (header override) or from server
// config, so clients are constructed per call rather than held long-lived.
type BackendFactory func(provider, apiKey string) (llm.Client, error)

// Options wires the server's collaborators. Renderer and Events are
// optional: without a renderer the share route reports unconfigured, without
// an events client no lifecycle events are published.
type Options struct {
	Port        int
	DB          *store.Store
	Analyzer    *analyzer.Analyzer
	Backends    BackendFactory
	DefaultKeys map[string]string
	Renderer    sharepage.Renderer
	Events      *events.Client
	Logger      *slog.Logger
}

type Server struct {
	router      *chi.Mux
	port        int
	db          *store.Store
	analyzer    *analyzer.Analyzer
	backends    BackendFactory
	defaultKeys map[string]string
	renderer    sharepage.Renderer
	events      *events.Client
	logger      *slog.Logger
}

func NewServer(opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:      router,
		port:        opts.Port,
		db:          opts.DB,
		analyzer:    opts.Analyzer,
		backends:    opts.Backends,
		defaultKeys: opts.DefaultKeys,
		renderer:    opts.Renderer,
		events:      opts.Events,
		logger:      opts.Logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/recap/status", s.status)

	router.Post("/api/v1/parse", s.handleParse)
	router.Post("/api/v1/analyze", s.handleAnalyze)
	router.Post("/api/v1/share", s.handleShare)

	router.Route("/api/v1/conversations", func(r chi.Router) {
		r.Get("/", s.listConversations)
		r.Post("/", s.createConversation)
		r.Get("/{id}", s.getConversation)
		r.Patch("/{id}", s.patchConversation)
		r.Delete("/{id}", s.deleteConversation)
		r.Get("/{id}/export", s.exportConversation)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var providers []string
	for p := range s.defaultKeys {
		providers = append(providers, p)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"service":          "recap",
		"status":           "ready",
		"providers":        providers,
		"share_fetch":      s.renderer != nil,
		"events_connected": s.events != nil,
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
