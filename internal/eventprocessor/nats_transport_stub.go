// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

//go:build !nats

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"
)

// NATSRelay is a stub when NATS dependencies are not compiled in.
// Build with -tags=nats to enable the JetStream transport.
type NATSRelay struct {
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
}

// NewNATSRelay returns an error when NATS support is not compiled in.
// Build with -tags=nats to enable the JetStream transport.
func NewNATSRelay(cfg NATSConfig, logger watermill.LoggerAdapter) (*NATSRelay, error) {
	return nil, fmt.Errorf("NATS relay not available: build with -tags=nats")
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (r *NATSRelay) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	r.circuitBreaker = cb
}

// Publish is a stub that returns an error.
func (r *NATSRelay) Publish(ctx context.Context, topic string, msg *message.Message) error {
	return fmt.Errorf("NATS relay not available: build with -tags=nats")
}

// PublishEvent is a stub that returns an error.
func (r *NATSRelay) PublishEvent(ctx context.Context, event *AnnotationEvent) error {
	return fmt.Errorf("NATS relay not available: build with -tags=nats")
}

// Subscribe is a stub that returns an error.
func (r *NATSRelay) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	return nil, fmt.Errorf("NATS relay not available: build with -tags=nats")
}

// Close is a no-op stub.
func (r *NATSRelay) Close() error {
	return nil
}
