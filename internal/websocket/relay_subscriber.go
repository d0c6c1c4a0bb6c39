// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package websocket

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/metrics"
)

// RelayEvent mirrors eventprocessor.AnnotationEvent to avoid circular
// imports. Events are published after persistence succeeds and fanned
// out to the originating room.
type RelayEvent struct {
	EventID  string      `json:"event_id"`
	Room     string      `json:"room"`
	Type     string      `json:"type"`
	SenderID uint64      `json:"sender_id,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// MessageSource defines the interface for receiving relayed messages.
// This allows the WebSocket subscriber to work with any message source:
// the in-process watermill channel or a NATS JetStream consumer.
type MessageSource interface {
	// Subscribe subscribes to a topic and returns a channel of messages.
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	// Close releases resources.
	Close() error
}

// RelaySubscriber bridges persisted annotation events to WebSocket
// broadcasts. It subscribes to the relay topic and forwards each event
// to the room named inside it, excluding the original sender.
type RelaySubscriber struct {
	hub     *Hub
	source  MessageSource
	topic   string
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRelaySubscriber creates a new relay to WebSocket bridge.
func NewRelaySubscriber(hub *Hub, source MessageSource, topic string) *RelaySubscriber {
	return &RelaySubscriber{
		hub:    hub,
		source: source,
		topic:  topic,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins listening for relay events and forwarding to WebSocket.
func (s *RelaySubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	// Fresh channels per run so the subscriber survives supervisor
	// restarts.
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	messages, err := s.source.Subscribe(ctx, s.topic)
	if err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}

	go s.processMessages(ctx, messages, stopCh, doneCh)

	logging.Info().Str("topic", s.topic).Msg("relay to WebSocket subscriber started")
	return nil
}

// Stop stops the subscriber.
func (s *RelaySubscriber) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	logging.Info().Msg("relay to WebSocket subscriber stopped")
}

// processMessages handles incoming relay messages.
func (s *RelaySubscriber) processMessages(ctx context.Context, messages <-chan []byte, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case data, ok := <-messages:
			if !ok {
				return
			}
			s.handleMessage(data)
		}
	}
}

// handleMessage forwards a single relay event to its room.
func (s *RelaySubscriber) handleMessage(data []byte) {
	var event RelayEvent
	if err := json.Unmarshal(data, &event); err != nil {
		logging.Warn().Err(err).Msg("failed to unmarshal relay event")
		return
	}
	if event.Room == "" || event.Type == "" {
		logging.Warn().Str("event_id", event.EventID).Msg("relay event missing room or type")
		return
	}

	s.hub.BroadcastEvent(event.Room, event.Type, event.Data, event.SenderID)
	metrics.RelayEventsDelivered.Inc()
}
