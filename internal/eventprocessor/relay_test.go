// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

func TestRelayPublishSubscribeRoundTrip(t *testing.T) {
	relay := NewRelay(watermill.NopLogger{})
	t.Cleanup(func() { _ = relay.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads, err := relay.Subscribe(ctx, TopicEvents)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	event, err := NewAnnotationEvent("room-1", "comment:added", map[string]string{"id": "c1"})
	if err != nil {
		t.Fatalf("NewAnnotationEvent() failed: %v", err)
	}
	if err := relay.PublishEvent(ctx, event); err != nil {
		t.Fatalf("PublishEvent() failed: %v", err)
	}

	select {
	case data := <-payloads:
		got, err := DeserializeEvent(data)
		if err != nil {
			t.Fatalf("DeserializeEvent() failed: %v", err)
		}
		if got.EventID != event.EventID || got.Room != "room-1" {
			t.Errorf("delivered event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed payload")
	}
}

func TestRelayPublishAfterCloseFails(t *testing.T) {
	relay := NewRelay(watermill.NopLogger{})
	if err := relay.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	event, _ := NewAnnotationEvent("room-1", "comment:added", nil)
	if err := relay.PublishEvent(context.Background(), event); err == nil {
		t.Error("PublishEvent() after Close() should fail")
	}

	// Closing twice is safe.
	if err := relay.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestRelayPublishWithCircuitBreaker(t *testing.T) {
	relay := NewRelay(watermill.NopLogger{})
	t.Cleanup(func() { _ = relay.Close() })
	relay.SetCircuitBreaker(NewCircuitBreaker(DefaultCircuitBreakerConfig("relay-test")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads, err := relay.Subscribe(ctx, TopicEvents)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	event, _ := NewAnnotationEvent("room-1", "task:status-updated", nil)
	if err := relay.PublishEvent(ctx, event); err != nil {
		t.Fatalf("PublishEvent() through breaker failed: %v", err)
	}

	select {
	case <-payloads:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for breaker-wrapped publish")
	}
}
