// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package annotation

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pinpoint/internal/logging"
)

// HandlerFunc processes one decoded envelope.
type HandlerFunc func(ctx context.Context, env Envelope) error

type routeKey struct {
	msgType string
	action  string
}

// Router dispatches envelopes to handlers registered per (type, action)
// pair. Messages with no registered handler are dropped silently; a frame
// must tolerate messages from newer peers without breaking.
type Router struct {
	mu       sync.RWMutex
	handlers map[routeKey]HandlerFunc
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[routeKey]HandlerFunc)}
}

// Handle registers a handler for a (type, action) pair, replacing any
// previous registration.
func (r *Router) Handle(msgType, action string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[routeKey{msgType: msgType, action: action}] = fn
}

// Dispatch decodes raw message bytes and invokes the matching handler.
// Malformed JSON and unrecognized (type, action) pairs return nil: the
// protocol treats them as noise, not errors.
func (r *Router) Dispatch(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logging.Debug().Err(err).Msg("dropping malformed frame message")
		return nil
	}
	return r.DispatchEnvelope(ctx, env)
}

// DispatchEnvelope invokes the handler for an already decoded envelope.
func (r *Router) DispatchEnvelope(ctx context.Context, env Envelope) error {
	r.mu.RLock()
	fn, ok := r.handlers[routeKey{msgType: env.Type, action: env.Action}]
	r.mu.RUnlock()

	if !ok {
		logging.Debug().
			Str("type", env.Type).
			Str("action", env.Action).
			Msg("dropping unrecognized frame message")
		return nil
	}

	return fn(ctx, env)
}

// DecodePayload unmarshals an envelope payload into dst.
func DecodePayload(env Envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(env.Payload, dst)
}
