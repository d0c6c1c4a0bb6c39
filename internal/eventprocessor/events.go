// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package eventprocessor publishes persisted annotation events and
// feeds them back to the realtime layer. The default transport is an
// in-process Watermill channel; build with -tags=nats for a NATS
// JetStream transport shared across replicas.
package eventprocessor

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to AnnotationEvent.
const SchemaVersion = 1

// TopicEvents is the relay topic every annotation event publishes to.
// Rooms are addressed inside the event, not by topic, so a single
// durable stream covers all canvases.
const TopicEvents = "annotations.events"

// AnnotationEvent is the canonical persisted-change notification. One
// is published after every successful store commit; subscribers fan it
// out to the room named inside it, excluding the original sender.
type AnnotationEvent struct {
	// Schema version for forward/backward compatibility
	SchemaVersion int `json:"schema_version,omitempty"`

	// Identification
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	// Routing
	Room     string `json:"room"`
	Type     string `json:"type"`
	SenderID uint64 `json:"sender_id,omitempty"`

	// Origin
	CanvasSlug string `json:"canvas_slug,omitempty"`
	AuthorName string `json:"author_name,omitempty"`

	// Payload delivered verbatim to room members.
	Data json.RawMessage `json:"data,omitempty"`
}

// NewAnnotationEvent creates an event with a unique ID, timestamp, and
// schema version. Data is marshaled immediately so a later mutation of
// the payload value cannot change what subscribers see.
func NewAnnotationEvent(room, eventType string, data interface{}) (*AnnotationEvent, error) {
	event := &AnnotationEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		Room:          room,
		Type:          eventType,
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal event data: %w", err)
		}
		event.Data = raw
	}
	return event, nil
}

// GetSchemaVersion returns the schema version, defaulting to 1 for
// events written before the field existed.
func (e *AnnotationEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// Validate checks required fields.
func (e *AnnotationEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.Room == "" {
		return fmt.Errorf("room is required")
	}
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	return nil
}

// Topic returns the relay topic for this event.
func (e *AnnotationEvent) Topic() string {
	return TopicEvents
}

// SerializeEvent validates and marshals an event for the wire.
func SerializeEvent(event *AnnotationEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DeserializeEvent decodes a wire payload back into an event.
func DeserializeEvent(data []byte) (*AnnotationEvent, error) {
	var event AnnotationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
