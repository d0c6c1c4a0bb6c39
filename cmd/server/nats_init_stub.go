// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

//go:build !nats

package main

import (
	"github.com/tomtom215/pinpoint/internal/config"
	"github.com/tomtom215/pinpoint/internal/logging"
)

// initRelayTransport returns the in-process relay. NATS support requires
// building with -tags nats.
func initRelayTransport(cfg *config.Config) (relayTransport, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS is enabled in configuration but this binary was built without -tags nats, using in-process event relay")
	}
	return newChannelRelay(), nil
}
