// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// CreateSessionRequest identifies a reviewer for POST /api/session.
// Review sessions are identity-based; access control happens per canvas
// through guest scoping, not through passwords.
type CreateSessionRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=128"`
}

// SessionResponse carries a freshly minted token.
type SessionResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GuestAccessRequest invites a guest onto one canvas.
type GuestAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1,max=128"`
}

// CreateSession mints an admin session token and sets it as a cookie for
// same-origin requests. The websocket upgrade passes it back as a query
// parameter instead.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	token, err := h.tokens.GenerateAdminToken(req.Email, req.Name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRANSIENT", "Failed to create session", err)
		return
	}

	expires := time.Now().Add(h.config.Security.SessionTimeout)
	h.setSessionCookie(w, r, token, expires)

	respondSuccess(w, http.StatusCreated, SessionResponse{
		Token:     token,
		Role:      "admin",
		ExpiresAt: expires,
	})
}

// GrantGuestAccess adds a guest to the canvas guest list and mints a
// canvas-scoped token for them. Admin only; routed through RequireAdmin.
func (h *Handler) GrantGuestAccess(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req GuestAccessRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.store.AddGuest(r.Context(), slug, req.Email); err != nil {
		respondStoreError(w, err)
		return
	}

	token, err := h.tokens.GenerateGuestToken(req.Email, req.Name, slug)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TRANSIENT", "Failed to create guest token", err)
		return
	}

	respondSuccess(w, http.StatusCreated, SessionResponse{
		Token:     token,
		Role:      "guest",
		ExpiresAt: time.Now().Add(h.config.Security.GuestTokenTTL),
	})
}

// setSessionCookie issues the token cookie. Secure is derived from the
// request scheme so local development over plain HTTP still works.
func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
