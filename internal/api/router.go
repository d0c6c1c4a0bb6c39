// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package api provides the HTTP surface: REST persistence operations,
// the websocket upgrade endpoint, and observability routes.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/pinpoint/internal/auth"
	"github.com/tomtom215/pinpoint/internal/config"
	"github.com/tomtom215/pinpoint/internal/middleware"
)

// Session mint endpoints get strict limiting; everything else uses the
// configured default.
var sessionMintLimit = struct {
	requests int
	window   time.Duration
}{5, time.Minute}

// Router wires handlers, auth and middleware into a chi mux.
type Router struct {
	handler *Handler
	authmw  *auth.Middleware
	cfg     *config.Config
}

// NewRouter creates the API router.
func NewRouter(handler *Handler, authmw *auth.Middleware, cfg *config.Config) *Router {
	return &Router{
		handler: handler,
		authmw:  authmw,
		cfg:     cfg,
	}
}

// Setup configures all HTTP routes.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Client-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health probes stay unauthenticated for orchestrators.
	r.Route("/api/health", func(r chi.Router) {
		r.Get("/", rt.handler.Health)
		r.Get("/live", rt.handler.HealthLive)
		r.Get("/ready", rt.handler.HealthReady)
	})

	// Session minting. Strict rate limit; this is the closest thing to a
	// login endpoint the service has.
	r.Route("/api/session", func(r chi.Router) {
		r.Use(rt.rateLimitSession())
		r.Post("/", rt.handler.CreateSession)
	})

	// Canvas persistence operations. All require a valid session token.
	r.Route("/api/canvases", func(r chi.Router) {
		r.Use(rt.rateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.authmw.Authenticate)

		r.With(rt.authmw.RequireAdmin).Get("/", rt.handler.ListCanvases)
		r.With(rt.authmw.RequireAdmin).Post("/", rt.handler.CreateCanvas)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", rt.handler.GetCanvas)

			r.With(rt.authmw.RequireAdmin).Post("/versions", rt.handler.AppendVersion)
			r.With(rt.authmw.RequireAdmin).Post("/guest-access", rt.handler.GrantGuestAccess)

			r.Post("/threads", rt.handler.SaveThread)
			r.Route("/threads/{threadID}/comments", func(r chi.Router) {
				r.Post("/", rt.handler.AddComment)
				r.Patch("/{commentID}", rt.handler.EditComment)
				r.Delete("/{commentID}", rt.handler.DeleteComment)
			})

			r.Get("/tasks", rt.handler.ListTasks)
			r.With(rt.authmw.RequireAdmin).Patch("/tasks", rt.handler.UpdateTaskStatus)
		})
	})

	// Realtime. The token travels as a query parameter on the upgrade.
	r.Route("/api/ws", func(r chi.Router) {
		r.Use(rt.rateLimit())
		r.Use(rt.authmw.Authenticate)
		r.Get("/", rt.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns the default per-IP rate limiter, or a no-op when
// disabled for tests and local development.
func (rt *Router) rateLimit() func(http.Handler) http.Handler {
	if rt.cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(rt.cfg.Security.RateLimitReqs, rt.cfg.Security.RateLimitWindow)
}

// rateLimitSession returns the strict limiter for session minting.
func (rt *Router) rateLimitSession() func(http.Handler) http.Handler {
	if rt.cfg.Security.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(sessionMintLimit.requests, sessionMintLimit.window)
}
