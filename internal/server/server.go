// Package server exposes the session manager over HTTP: a JSON API for
// session lifecycle and chat turns, plus a WebSocket endpoint for
// streaming chat.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/session"
	"github.com/scrypster/recall/pkg/types"
)

// Ingestor adds passages to the vector index. *engine.Engine satisfies
// it; the ingest endpoints are disabled when none is provided.
type Ingestor interface {
	Ingest(ctx context.Context, passage types.RetrievedPassage) error
	IndexedPassages(ctx context.Context) (int, error)
}

// Server routes HTTP traffic to the session manager.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	ingestor Ingestor
}

// New creates a server over the given session manager. ingestor may be
// nil, which returns 501 from the passage endpoints.
func New(cfg *config.Config, sessions *session.Manager, ingestor Ingestor) *Server {
	return &Server{cfg: cfg, sessions: sessions, ingestor: ingestor}
}

// Handler builds the full HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{id}/stats", s.handleSessionStats)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("POST /api/sessions/{id}/clear", s.handleClear)

	mux.HandleFunc("POST /api/passages", s.handleIngest)

	mux.HandleFunc("GET /ws/sessions/{id}", s.handleChatSocket)

	limiter := NewRateLimiter(10.0, 20)
	var handler http.Handler = mux
	handler = RequireAuth(handler, s.cfg)
	handler = RateLimitMiddleware(handler, limiter)
	handler = securityHeadersMiddleware(handler)
	return handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("listening on http://%s", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("server stopped")
	return nil
}
