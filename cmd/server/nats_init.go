// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/pinpoint/internal/config"
	"github.com/tomtom215/pinpoint/internal/eventprocessor"
	"github.com/tomtom215/pinpoint/internal/logging"
)

// natsTransport bundles the NATS relay with the optional embedded
// server so a single Close tears both down in order.
type natsTransport struct {
	*eventprocessor.NATSRelay
	server *eventprocessor.EmbeddedServer
}

func (t *natsTransport) Close() error {
	err := t.NATSRelay.Close()
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := t.server.Shutdown(ctx); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}
	return err
}

// initRelayTransport builds the NATS-backed relay when NATS is enabled,
// starting an embedded JetStream server first if configured. With NATS
// disabled it falls back to the in-process channel, so a nats-tagged
// binary still runs single-replica deployments unchanged.
func initRelayTransport(cfg *config.Config) (relayTransport, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS relay disabled, using in-process event relay")
		return newChannelRelay(), nil
	}

	// NATS_* environment variables form the base; koanf-managed settings
	// override when set.
	natsCfg := eventprocessor.LoadNATSConfig()
	natsCfg.Enabled = true
	natsCfg.URL = cfg.NATS.URL
	natsCfg.EmbeddedServer = cfg.NATS.EmbeddedServer
	if cfg.NATS.StoreDir != "" {
		natsCfg.StoreDir = cfg.NATS.StoreDir
	}
	if cfg.NATS.MaxMemory > 0 {
		natsCfg.MaxMemory = cfg.NATS.MaxMemory
	}
	if cfg.NATS.MaxStore > 0 {
		natsCfg.MaxStore = cfg.NATS.MaxStore
	}
	if cfg.NATS.DurableName != "" {
		natsCfg.DurableName = cfg.NATS.DurableName
	}
	if cfg.NATS.QueueGroup != "" {
		natsCfg.QueueGroup = cfg.NATS.QueueGroup
	}

	var embedded *eventprocessor.EmbeddedServer
	if natsCfg.EmbeddedServer {
		var err error
		embedded, err = eventprocessor.NewEmbeddedServer(natsCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		natsCfg.URL = embedded.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	// The relay does not auto-provision; the stream must exist before
	// its publisher and subscriber connect.
	if err := ensureEventStream(natsCfg); err != nil {
		if embedded != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := embedded.Shutdown(ctx); shutdownErr != nil {
				logging.Error().Err(shutdownErr).Msg("Error shutting down embedded NATS server")
			}
		}
		return nil, fmt.Errorf("ensure event stream: %w", err)
	}

	relay, err := eventprocessor.NewNATSRelay(natsCfg, eventprocessor.NewWatermillLogger())
	if err != nil {
		if embedded != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := embedded.Shutdown(ctx); shutdownErr != nil {
				logging.Error().Err(shutdownErr).Msg("Error shutting down embedded NATS server")
			}
		}
		return nil, fmt.Errorf("connect NATS relay: %w", err)
	}
	relay.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("nats-relay")))

	logging.Info().Str("url", natsCfg.URL).Msg("NATS relay initialized")
	return &natsTransport{NATSRelay: relay, server: embedded}, nil
}

// ensureEventStream creates or updates the annotation event stream over
// a short-lived bootstrap connection.
func ensureEventStream(natsCfg eventprocessor.NATSConfig) error {
	nc, err := natsgo.Connect(natsCfg.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	init, err := eventprocessor.NewStreamInitializer(js, eventprocessor.DefaultStreamConfig())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := init.EnsureStream(ctx); err != nil {
		return err
	}
	return nil
}
