// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package eventprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pinpoint/internal/metrics"
)

// Relay publishes annotation events and hands them to subscribers. The
// default backend is Watermill's in-process channel, which is exactly
// right for a single-replica deployment: publish happens after the
// store commit, delivery is in-order per topic, and nothing leaves the
// process.
type Relay struct {
	pubsub         *gochannel.GoChannel
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewRelay creates an in-process relay.
func NewRelay(logger watermill.LoggerAdapter) *Relay {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)

	return &Relay{pubsub: pubsub}
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (r *Relay) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	r.circuitBreaker = cb
}

// Publish sends a message to the specified topic with circuit breaker
// protection when one is configured.
func (r *Relay) Publish(ctx context.Context, topic string, msg *message.Message) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return fmt.Errorf("relay is closed")
	}
	r.mu.RUnlock()

	var err error
	if r.circuitBreaker != nil {
		_, err = r.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, r.pubsub.Publish(topic, msg)
		})
	} else {
		err = r.pubsub.Publish(topic, msg)
	}

	if err == nil {
		metrics.RelayEventsPublished.Inc()
	}
	return err
}

// PublishEvent serializes and publishes an annotation event.
func (r *Relay) PublishEvent(ctx context.Context, event *AnnotationEvent) error {
	data, err := SerializeEvent(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("room", event.Room)
	msg.Metadata.Set("type", event.Type)

	return r.Publish(ctx, event.Topic(), msg)
}

// Subscribe returns the raw payloads published to a topic. Messages are
// acked as soon as they are handed to the caller; the realtime layer is
// fire-and-forget, persistence already happened before publish.
func (r *Relay) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	msgs, err := r.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		for msg := range msgs {
			payload := msg.Payload
			msg.Ack()
			select {
			case out <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close shuts down the relay and all subscriber channels.
func (r *Relay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	return r.pubsub.Close()
}
