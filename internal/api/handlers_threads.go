// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/pinpoint/internal/auth"
	"github.com/tomtom215/pinpoint/internal/models"
	"github.com/tomtom215/pinpoint/internal/websocket"
)

// PingRequest is the fractional anchor of a new thread.
type PingRequest struct {
	X      float64 `json:"x" validate:"fraction"`
	Y      float64 `json:"y" validate:"fraction"`
	Width  float64 `json:"width" validate:"fraction"`
	Height float64 `json:"height" validate:"fraction"`
}

// TextEditRequest is the inline text-change payload attached to a
// comment whose annotation target is an edited element rather than a
// drawn box.
type TextEditRequest struct {
	Selector string `json:"selector" validate:"required"`
	OldText  string `json:"oldText"`
	NewText  string `json:"newText"`
}

func (te *TextEditRequest) model() *models.TextEdit {
	if te == nil {
		return nil
	}
	return &models.TextEdit{Selector: te.Selector, OldText: te.OldText, NewText: te.NewText}
}

// SaveThreadRequest is the payload for POST /api/canvases/{slug}/threads.
// VersionID asserts which version the client was viewing; when set and
// superseded, the write is rejected with STALE_VERSION.
type SaveThreadRequest struct {
	PageURL   string           `json:"pageUrl" validate:"required"`
	Viewport  string           `json:"viewport"`
	VersionID string           `json:"versionId"`
	Message   string           `json:"message" validate:"required"`
	Type      string           `json:"commentType" validate:"omitempty,oneof=comment task"`
	Ping      PingRequest      `json:"ping"`
	TextEdit  *TextEditRequest `json:"textEdit"`
}

// AddCommentRequest is the payload for a thread reply.
type AddCommentRequest struct {
	Message  string           `json:"message" validate:"required"`
	Type     string           `json:"commentType" validate:"omitempty,oneof=comment task"`
	TextEdit *TextEditRequest `json:"textEdit"`
}

// EditCommentRequest is the payload for PATCH on a comment.
type EditCommentRequest struct {
	Message string `json:"message" validate:"required"`
}

// threadEventData is the payload relayed to the room on thread creation.
type threadEventData struct {
	PageURL string        `json:"pageUrl"`
	Thread  models.Thread `json:"thread"`
}

// commentEventData is the payload relayed on comment mutations.
type commentEventData struct {
	ThreadID string         `json:"threadId"`
	Comment  models.Comment `json:"comment"`
}

// SaveThread creates a thread anchored at a ping on a page of the latest
// version. The server stamps thread and comment identity; author fields
// come from the session token, never from the payload.
func (h *Handler) SaveThread(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	claims, ok := h.canvasClaims(w, r, slug)
	if !ok {
		return
	}

	var req SaveThreadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	thread := models.Thread{
		Viewport: req.Viewport,
		Comments: []models.Comment{{
			AuthorEmail: claims.Email,
			AuthorName:  claims.Name,
			Message:     req.Message,
			Type:        req.Type,
			Ping: models.Ping{
				X:      req.Ping.X,
				Y:      req.Ping.Y,
				Width:  req.Ping.Width,
				Height: req.Ping.Height,
			},
			TextEdit: req.TextEdit.model(),
		}},
	}

	saved, err := h.store.SaveThread(r.Context(), slug, req.PageURL, thread, req.VersionID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeThreadAdded, slug, claims.Name,
		threadEventData{PageURL: req.PageURL, Thread: *saved})
	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeCommentAdded, slug, claims.Name,
		commentEventData{ThreadID: saved.ID, Comment: saved.Comments[0]})

	respondSuccess(w, http.StatusCreated, saved)
}

// AddComment appends a reply to an existing thread.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	threadID := chi.URLParam(r, "threadID")

	claims, ok := h.canvasClaims(w, r, slug)
	if !ok {
		return
	}

	var req AddCommentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	comment := models.Comment{
		AuthorEmail: claims.Email,
		AuthorName:  claims.Name,
		Message:     req.Message,
		Type:        req.Type,
		TextEdit:    req.TextEdit.model(),
	}

	saved, err := h.store.AddComment(r.Context(), slug, threadID, comment)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeCommentReplied, slug, claims.Name,
		commentEventData{ThreadID: threadID, Comment: *saved})

	respondSuccess(w, http.StatusCreated, saved)
}

// EditComment rewrites the latest comment of a thread. Author only, once.
func (h *Handler) EditComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	threadID := chi.URLParam(r, "threadID")
	commentID := chi.URLParam(r, "commentID")

	claims, ok := h.canvasClaims(w, r, slug)
	if !ok {
		return
	}

	var req EditCommentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	edited, err := h.store.EditComment(r.Context(), slug, threadID, commentID, req.Message, claims.Email)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeCommentEdited, slug, claims.Name,
		commentEventData{ThreadID: threadID, Comment: *edited})

	respondSuccess(w, http.StatusOK, edited)
}

// DeleteComment tombstones the latest comment of a thread. Author only.
// The slot survives with attribution so the panel can still render the
// position.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	threadID := chi.URLParam(r, "threadID")
	commentID := chi.URLParam(r, "commentID")

	claims, ok := h.canvasClaims(w, r, slug)
	if !ok {
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	deleted, err := h.store.DeleteComment(r.Context(), slug, threadID, commentID, claims.Email)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publishEvent(r, canvas.RoomID, websocket.MessageTypeCommentDeleted, slug, claims.Name,
		commentEventData{ThreadID: threadID, Comment: *deleted})

	respondSuccess(w, http.StatusOK, deleted)
}

// canvasClaims validates the token scope against a canvas slug. Writes
// the error response itself on failure.
func (h *Handler) canvasClaims(w http.ResponseWriter, r *http.Request, slug string) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session token", nil)
		return nil, false
	}
	if !claims.AllowsCanvas(slug) {
		respondError(w, http.StatusForbidden, "FORBIDDEN", "Token is not valid for this canvas", nil)
		return nil, false
	}
	return claims, true
}
