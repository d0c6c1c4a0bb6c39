// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package auth issues and validates review session tokens. Admins get a
// full session token; guests get a canvas-scoped token minted through
// the guest-access flow.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/pinpoint/internal/config"
)

// Roles carried in token claims.
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Claims represents JWT claims for a review session.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`

	// CanvasSlug scopes guest tokens to one canvas. Empty for admins.
	CanvasSlug string `json:"canvas_slug,omitempty"`

	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// AllowsCanvas reports whether the claims grant access to a canvas.
// Admin tokens are unscoped; guest tokens match one slug only.
func (c *Claims) AllowsCanvas(slug string) bool {
	if c.IsAdmin() {
		return true
	}
	return c.CanvasSlug == slug
}

// TokenManager handles JWT token creation and validation.
// Uses HMAC-SHA256 signing; the secret must be at least 32 bytes in
// production (enforced by config validation).
type TokenManager struct {
	secret         []byte
	sessionTimeout time.Duration
	guestTTL       time.Duration
}

// NewTokenManager creates a token manager from the security config.
func NewTokenManager(cfg *config.SecurityConfig) (*TokenManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}

	return &TokenManager{
		secret:         []byte(cfg.JWTSecret),
		sessionTimeout: cfg.SessionTimeout,
		guestTTL:       cfg.GuestTokenTTL,
	}, nil
}

// GenerateAdminToken creates a session token for a canvas administrator.
func (m *TokenManager) GenerateAdminToken(email, name string) (string, error) {
	return m.sign(&Claims{
		Email: normalizeEmail(email),
		Name:  name,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.sessionTimeout)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	})
}

// GenerateGuestToken creates a canvas-scoped token for an invited guest.
func (m *TokenManager) GenerateGuestToken(email, name, canvasSlug string) (string, error) {
	if canvasSlug == "" {
		return "", fmt.Errorf("guest token requires a canvas slug")
	}

	return m.sign(&Claims{
		Email:      normalizeEmail(email),
		Name:       name,
		Role:       RoleGuest,
		CanvasSlug: canvasSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.guestTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	})
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, nil
}

// ValidateToken validates a token string and extracts the claims.
// Rejects tokens signed with an unexpected algorithm to prevent
// algorithm confusion attacks.
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
