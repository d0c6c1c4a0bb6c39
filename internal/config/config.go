// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package config loads layered application configuration: built-in
// defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// StoreConfig holds canvas persistence settings.
type StoreConfig struct {
	// Path is the Badger database directory. Empty means in-memory,
	// which is only useful for tests.
	Path string `koanf:"path"`

	// GCInterval is how often the value log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// RealtimeConfig holds the realtime fan-out settings.
type RealtimeConfig struct {
	// RelayTopic is the topic annotation events publish to.
	RelayTopic string `koanf:"relay_topic"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// JWTSecret signs review session tokens. Required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// SessionTimeout is the lifetime of an admin session token.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// GuestTokenTTL is the lifetime of guest access tokens.
	GuestTokenTTL time.Duration `koanf:"guest_token_ttl"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// NATSConfig selects the relay transport. Disabled means the in-process
// channel, which is correct for a single replica.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`
	DurableName    string `koanf:"durable_name"`
	QueueGroup     string `koanf:"queue_group"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate checks configuration consistency. Production mode enforces
// the settings a deployment cannot safely run without.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}

	if c.Security.GuestTokenTTL <= 0 {
		return fmt.Errorf("security.guest_token_ttl must be positive")
	}
	if c.Security.SessionTimeout <= 0 {
		return fmt.Errorf("security.session_timeout must be positive")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 || c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("rate limiting enabled but security.rate_limit_reqs/window not positive")
		}
	}

	if c.Realtime.RelayTopic == "" {
		return fmt.Errorf("realtime.relay_topic must not be empty")
	}

	if c.IsProduction() {
		if c.Security.JWTSecret == "" {
			return fmt.Errorf("security.jwt_secret is required in production")
		}
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 bytes in production")
		}
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required in production, in-memory storage loses all canvases on restart")
		}
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("security.cors_origins must not contain * in production")
			}
		}
	}

	return nil
}
