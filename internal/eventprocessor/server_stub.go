// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

//go:build !nats

package eventprocessor

import (
	"context"
	"fmt"
)

// EmbeddedServer is a stub when NATS support is not compiled in.
type EmbeddedServer struct{}

// NewEmbeddedServer returns an error when NATS support is not compiled in.
func NewEmbeddedServer(cfg NATSConfig) (*EmbeddedServer, error) {
	return nil, fmt.Errorf("embedded NATS server not available: build with -tags=nats")
}

// ClientURL returns an empty string for the stub.
func (s *EmbeddedServer) ClientURL() string {
	return ""
}

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	return nil
}

// IsRunning always reports false for the stub.
func (s *EmbeddedServer) IsRunning() bool {
	return false
}
