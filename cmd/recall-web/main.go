// Command recall-web serves the Recall HTTP and WebSocket API.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/engine"
	"github.com/scrypster/recall/internal/server"
	"github.com/scrypster/recall/internal/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runtime, err := engine.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer runtime.Close()

	// One engine handles ingestion; sessions get their own conversations
	// over the same shared store and clients.
	ingestor, err := runtime.NewEngine()
	if err != nil {
		log.Fatalf("Failed to initialize ingestion engine: %v", err)
	}

	sessions := session.NewManager(func() (session.Engine, error) {
		return runtime.NewEngine()
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, sessions, ingestor)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
