// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/pinpoint/internal/auth"
	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/websocket"
)

// upgrader configures the websocket upgrade. Origin checking is done
// here rather than in CORS middleware because the upgrade is a plain GET
// that bypasses preflight.
func (h *Handler) upgrader() gorilla.Upgrader {
	return gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.config.Security.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// WebSocket upgrades the connection and registers the client with the
// hub. The session token rides in as a query parameter since browsers
// cannot set headers on upgrade requests; Authenticate already validated
// it. Room membership is established by the client's join-room message.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session token", nil)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, websocket.Identity{
		Email: claims.Email,
		Name:  claims.Name,
	})

	h.hub.Register <- client
	client.Start()

	logging.Debug().
		Uint64("client_id", client.ID()).
		Str("email", claims.Email).
		Msg("WebSocket client connected")
}
