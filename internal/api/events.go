// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/tomtom215/pinpoint/internal/eventprocessor"
	"github.com/tomtom215/pinpoint/internal/logging"
)

// EventPublisher publishes annotation events onto the relay after a
// successful store commit. The relay fans them out to websocket rooms,
// excluding the sender.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *eventprocessor.AnnotationEvent) error
}

// SetEventPublisher wires the relay publisher. Optional; passing nil
// disables realtime fan-out of REST mutations.
//
// Should be called once during startup, before the server accepts
// requests.
func (h *Handler) SetEventPublisher(publisher EventPublisher) {
	h.publisher = publisher
}

// senderID extracts the caller's websocket client id from the
// X-Client-ID header. Mutating clients send it so their own broadcast is
// suppressed; they already applied the change optimistically. Zero means
// no exclusion.
func senderID(r *http.Request) uint64 {
	id, err := strconv.ParseUint(r.Header.Get("X-Client-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// publishEvent publishes a mutation event after the store commit.
// Publishing is asynchronous and best-effort; a relay failure must not
// fail the HTTP response since the data is already persisted.
func (h *Handler) publishEvent(r *http.Request, room, eventType, canvasSlug, authorName string, data interface{}) {
	if h.publisher == nil || room == "" {
		return
	}

	event, err := eventprocessor.NewAnnotationEvent(room, eventType, data)
	if err != nil {
		logging.Warn().Err(err).Str("type", eventType).Msg("Failed to build annotation event")
		return
	}
	event.SenderID = senderID(r)
	event.CanvasSlug = canvasSlug
	event.AuthorName = authorName

	go func() {
		if err := h.publisher.PublishEvent(context.Background(), event); err != nil {
			logging.Warn().Err(err).Str("type", eventType).Msg("Failed to publish annotation event")
		}
	}()
}
