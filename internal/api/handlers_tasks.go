// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/pinpoint/internal/websocket"
)

// UpdateTaskRequest is the payload for PATCH /api/canvases/{slug}/tasks.
// PathKey addresses the comment positionally; CommentID is the fallback
// when the path no longer resolves after concurrent edits.
type UpdateTaskRequest struct {
	PathKey   string `json:"pathKey"`
	CommentID string `json:"commentId"`
	Status    string `json:"status" validate:"required,oneof=active completed"`
}

// taskEventData is the payload relayed on task status changes.
type taskEventData struct {
	PathKey   string `json:"pathKey"`
	CommentID string `json:"commentId"`
	Status    string `json:"status"`
}

// ListTasks flattens every live task comment of the canvas into rows for
// the task list view.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if _, ok := h.canvasClaims(w, r, slug); !ok {
		return
	}

	rows, err := h.store.TaskRows(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, rows)
}

// UpdateTaskStatus flips a task between active and completed. Admin only;
// routed through RequireAdmin.
func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	claims, ok := h.canvasClaims(w, r, slug)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if req.PathKey == "" && req.CommentID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Either pathKey or commentId is required", nil)
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	updated, err := h.store.UpdateTaskStatus(r.Context(), slug, req.PathKey, req.CommentID, req.Status)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeTaskStatusUpdated, slug, claims.Name,
		taskEventData{PathKey: req.PathKey, CommentID: updated.ID, Status: req.Status})

	respondSuccess(w, http.StatusOK, updated)
}
