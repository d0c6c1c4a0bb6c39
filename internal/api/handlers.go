// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/pinpoint/internal/auth"
	"github.com/tomtom215/pinpoint/internal/config"
	"github.com/tomtom215/pinpoint/internal/frames"
	"github.com/tomtom215/pinpoint/internal/models"
	"github.com/tomtom215/pinpoint/internal/store"
	"github.com/tomtom215/pinpoint/internal/websocket"
)

// Handler carries the dependencies shared by all HTTP handlers.
type Handler struct {
	store     *store.CanvasStore
	hub       *websocket.Hub
	tokens    *auth.TokenManager
	config    *config.Config
	publisher EventPublisher
	startTime time.Time
}

// NewHandler creates the API handler set.
func NewHandler(st *store.CanvasStore, hub *websocket.Hub, tokens *auth.TokenManager, cfg *config.Config) *Handler {
	return &Handler{
		store:     st,
		hub:       hub,
		tokens:    tokens,
		config:    cfg,
		startTime: time.Now(),
	}
}

// CreateCanvasRequest is the payload for POST /api/canvases.
type CreateCanvasRequest struct {
	Slug       string `json:"slug" validate:"required,min=3,max=64"`
	AdminEmail string `json:"adminEmail" validate:"required,email"`
	Kind       string `json:"kind" validate:"required,oneof=website pdf"`
	TargetURL  string `json:"targetUrl" validate:"required"`
}

// CreateCanvas creates a canvas with one seed version containing a single
// page link for the annotated target. The room id is derived from the
// admin email, the target and the seed version id.
func (h *Handler) CreateCanvas(w http.ResponseWriter, r *http.Request) {
	var req CreateCanvasRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	pageURL := req.TargetURL
	if req.Kind == models.CanvasKindPDF {
		pageURL = req.TargetURL + "#page=1"
	}

	now := time.Now()
	seed := models.Version{
		ID:        uuid.New().String(),
		CreatedAt: now,
		PageLinks: []models.PageLink{{URL: pageURL, Threads: []models.Thread{}}},
	}

	canvas := &models.Canvas{
		Slug:       req.Slug,
		AdminEmail: req.AdminEmail,
		RoomID:     frames.DeriveRoomID(req.AdminEmail, req.Kind, req.TargetURL, seed.ID),
		Kind:       req.Kind,
		TargetURL:  req.TargetURL,
		Versions:   []models.Version{seed},
	}

	if err := h.store.CreateCanvas(r.Context(), canvas); err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, canvas)
}

// GetCanvas returns the full canvas document. Guests only see the canvas
// their token is scoped to.
func (h *Handler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if _, ok := h.canvasClaims(w, r, slug); !ok {
		return
	}

	canvas, err := h.store.GetCanvas(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, canvas)
}

// ListCanvases returns every canvas document. Admin only.
func (h *Handler) ListCanvases(w http.ResponseWriter, r *http.Request) {
	canvases, err := h.store.ListCanvases(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusOK, canvases)
}

// AppendVersion appends a new version to the canvas, copying page links
// forward so existing annotations stay visible. The room id moves with
// the version; clients rebind on the next join.
func (h *Handler) AppendVersion(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	version, err := h.store.AppendVersion(r.Context(), slug)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondSuccess(w, http.StatusCreated, version)
}
