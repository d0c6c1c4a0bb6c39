// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package main

import (
	"github.com/tomtom215/pinpoint/internal/eventprocessor"
)

// newChannelRelay builds the in-process watermill relay with a circuit
// breaker on the publish path. Used whenever NATS is unavailable.
func newChannelRelay() relayTransport {
	relay := eventprocessor.NewRelay(eventprocessor.NewWatermillLogger())
	relay.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("event-relay")))
	return relay
}
