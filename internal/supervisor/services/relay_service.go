// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package services

import (
	"context"
)

// RelayBridge matches *websocket.RelaySubscriber's lifecycle without
// importing the websocket package.
type RelayBridge interface {
	Start(ctx context.Context) error
	Stop()
}

// RelaySubscriberService runs the relay-to-websocket bridge under
// supervision. Start subscribes and spawns the forwarding loop; Serve
// then blocks until cancellation and tears the bridge down.
type RelaySubscriberService struct {
	bridge RelayBridge
	name   string
}

// NewRelaySubscriberService creates a relay bridge service wrapper.
func NewRelaySubscriberService(bridge RelayBridge) *RelaySubscriberService {
	return &RelaySubscriberService{
		bridge: bridge,
		name:   "relay-subscriber",
	}
}

// Serve implements suture.Service.
func (r *RelaySubscriberService) Serve(ctx context.Context) error {
	if err := r.bridge.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	r.bridge.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (r *RelaySubscriberService) String() string {
	return r.name
}
