package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/slice/internal/agent"
	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// Turns runs and reads conversations.
type Turns interface {
	HandleTurn(ctx context.Context, conversationID, wallet, input string, seed ...wager.Message) (agent.Result, error)
	Conversation(ctx context.Context, id string) (wager.State, error)
	Wager(ctx context.Context, wagerID string) (wager.Record, error)
}

// Broker reports the message bus connection.
type Broker interface {
	Connected() bool
}

type Config struct {
	Port        int
	APIToken    string // if empty, bearer auth is disabled
	CORSOrigins []string
	// Mode is reported by the status endpoint, e.g. "llm" or "keyword".
	Mode string
	// Broker is nil when the bus is not configured.
	Broker Broker
}

type Server struct {
	router *chi.Mux
	http   *http.Server
	turns  Turns
	mode   string
	broker Broker
	logger *slog.Logger
}

func NewServer(cfg Config, turns Turns, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(CORSMiddleware(cfg.CORSOrigins))

	s := &Server{
		router: router,
		turns:  turns,
		mode:   cfg.Mode,
		broker: cfg.Broker,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/slice/status", s.status)
	router.Get("/api/agent", s.agentStream)

	router.Route("/api/v1/conversations", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(cfg.APIToken))
		r.Post("/{id}/turns", s.postTurn)
		r.Get("/{id}", s.getConversation)
	})
	router.Route("/api/v1/wagers", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(cfg.APIToken))
		r.Get("/{id}", s.getWager)
	})

	// No WriteTimeout: an agent stream stays open for the whole turn.
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight turns until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	bus := "disabled"
	if s.broker != nil {
		bus = "disconnected"
		if s.broker.Connected() {
			bus = "connected"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "slice",
		"status": "active",
		"mode":   s.mode,
		"bus":    bus,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
