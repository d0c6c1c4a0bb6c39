// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package main is the entry point for the Pinpoint server application.
//
// Pinpoint is a self-hosted collaborative annotation platform. Reviewers
// pin rectangular annotations onto live websites and PDF documents,
// discuss them in threaded comments, and track them as tasks. Changes
// fan out in real time to everyone reviewing the same canvas version.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Store: Open the BadgerDB canvas store (append-only versioned canvases)
//  3. Event Relay: In-process watermill channel, or NATS JetStream with -tags nats
//  4. WebSocket Hub: Room-based fan-out of annotation events to connected clients
//  5. Authentication: JWT session tokens for admins and canvas-scoped guests
//  6. HTTP Server: REST API plus the /api/ws realtime endpoint
//
// All long-running components are owned by a suture supervisor tree with
// three layers (data, messaging, api) so a crash in one service restarts
// only that service.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (PINPOINT_ prefix, e.g. PINPOINT_SERVER_PORT)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// For JWT authentication:
//   - PINPOINT_SECURITY_JWT_SECRET: 32+ character secret for token signing
//
// # Build Tags
//
// Optional build tags enable additional functionality:
//
//	go build -tags "nats" ./cmd/server  # Relay events over NATS JetStream
//
// Without the tag the relay runs over an in-process channel, which is
// correct for a single replica. The NATS relay exists for multi-replica
// deployments where every replica must see every event.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Stops the relay subscriber and WebSocket hub
//   - Closes the relay transport and the Badger store
//
// # Example Usage
//
// Development with an in-memory store:
//
//	export PINPOINT_SECURITY_JWT_SECRET=$(openssl rand -base64 32)
//	export PINPOINT_LOGGING_FORMAT=console
//	./pinpoint
//
// Production with persistence:
//
//	export PINPOINT_SECURITY_JWT_SECRET=$(openssl rand -base64 32)
//	export PINPOINT_STORE_PATH=/data/pinpoint
//	export PINPOINT_SERVER_ENVIRONMENT=production
//	export PINPOINT_SECURITY_CORS_ORIGINS=https://review.example.com
//	./pinpoint
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/pinpoint/internal/api"
	"github.com/tomtom215/pinpoint/internal/auth"
	"github.com/tomtom215/pinpoint/internal/config"
	"github.com/tomtom215/pinpoint/internal/eventprocessor"
	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/store"
	"github.com/tomtom215/pinpoint/internal/supervisor"
	"github.com/tomtom215/pinpoint/internal/supervisor/services"
	ws "github.com/tomtom215/pinpoint/internal/websocket"
)

// relayTransport is the slice of the relay the server wires up: the API
// handlers publish through it and the WebSocket subscriber consumes from
// it. Both the in-process channel and the NATS relay satisfy it.
type relayTransport interface {
	PublishEvent(ctx context.Context, event *eventprocessor.AnnotationEvent) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("store_path", cfg.Store.Path).
		Msg("Starting Pinpoint")

	// Open the canvas store. An empty path means in-memory, which loses
	// all canvases on restart.
	var db *badger.DB
	if cfg.Store.Path == "" {
		logging.Warn().Msg("No store path configured, using in-memory store (data is lost on restart)")
		db, err = store.OpenInMemory()
	} else {
		db, err = store.Open(cfg.Store.Path)
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open canvas store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing canvas store")
		}
	}()
	canvases := store.NewCanvasStore(db)

	// Relay transport: in-process channel by default, NATS with -tags nats.
	relay, err := initRelayTransport(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event relay")
	}
	defer func() {
		if err := relay.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event relay")
		}
	}()

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	hub := ws.NewHub()
	subscriber := ws.NewRelaySubscriber(hub, relay, cfg.Realtime.RelayTopic)

	handler := api.NewHandler(canvases, hub, tokens, cfg)
	handler.SetEventPublisher(relay)
	router := api.NewRouter(handler, auth.NewMiddleware(tokens), cfg).Setup()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(store.NewGCService(db, cfg.Store.GCInterval))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRelaySubscriberService(subscriber))
	tree.AddAPIService(services.NewHTTPServerService(server, treeCfg.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shutdown complete")
}
