// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package eventprocessor

import (
	"testing"
)

func TestNewAnnotationEventStampsIdentity(t *testing.T) {
	event, err := NewAnnotationEvent("admin@acme.test/acme.test/#v1", "comment:added", map[string]string{"id": "c1"})
	if err != nil {
		t.Fatalf("NewAnnotationEvent() failed: %v", err)
	}

	if event.EventID == "" {
		t.Error("event id must be stamped")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp must be stamped")
	}
	if event.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d, want %d", event.SchemaVersion, SchemaVersion)
	}
	if event.Topic() != TopicEvents {
		t.Errorf("topic = %q, want %q", event.Topic(), TopicEvents)
	}
}

func TestAnnotationEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   AnnotationEvent
		wantErr bool
	}{
		{
			name:  "valid",
			event: AnnotationEvent{EventID: "e1", Room: "r1", Type: "comment:added"},
		},
		{
			name:    "missing event id",
			event:   AnnotationEvent{Room: "r1", Type: "comment:added"},
			wantErr: true,
		},
		{
			name:    "missing room",
			event:   AnnotationEvent{EventID: "e1", Type: "comment:added"},
			wantErr: true,
		},
		{
			name:    "missing type",
			event:   AnnotationEvent{EventID: "e1", Room: "r1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSchemaVersionDefaultsLegacyEvents(t *testing.T) {
	legacy := AnnotationEvent{EventID: "e1", Room: "r1", Type: "t"}
	if got := legacy.GetSchemaVersion(); got != 1 {
		t.Errorf("GetSchemaVersion() = %d, want 1 for legacy events", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	event, err := NewAnnotationEvent("room-1", "thread:added", map[string]string{"threadId": "t1"})
	if err != nil {
		t.Fatalf("NewAnnotationEvent() failed: %v", err)
	}

	data, err := SerializeEvent(event)
	if err != nil {
		t.Fatalf("SerializeEvent() failed: %v", err)
	}

	got, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() failed: %v", err)
	}
	if got.EventID != event.EventID || got.Room != "room-1" || got.Type != "thread:added" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSerializeRejectsInvalidEvent(t *testing.T) {
	if _, err := SerializeEvent(&AnnotationEvent{EventID: "e1"}); err == nil {
		t.Error("SerializeEvent() should reject an event without a room")
	}
}
