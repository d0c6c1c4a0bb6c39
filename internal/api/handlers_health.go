// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of GET /api/health.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Rooms         int     `json:"rooms"`
	Clients       int     `json:"clients"`
}

// Health reports service health plus realtime occupancy for dashboards.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:        "healthy",
		Version:       "1.0.0",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Rooms:         h.hub.GetRoomCount(),
		Clients:       h.hub.GetClientCount(),
	}

	respondSuccess(w, http.StatusOK, status)
}

// HealthLive is the liveness probe. Returns 200 as long as the process
// can serve requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write([]byte("OK"))
}

// HealthReady is the readiness probe. Checks the store is reachable with
// a cheap list scan.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.ListCanvases(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "TRANSIENT", "Store not ready", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // HTTP response write errors are not recoverable
	w.Write([]byte("OK"))
}
