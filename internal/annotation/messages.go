// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package annotation implements the renderer side of the frame protocol:
// the per-session drawing state machine and the typed router that
// dispatches control and event messages between host and frame.
package annotation

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pinpoint/internal/models"
)

// Message discriminators. Control messages flow host -> frame, event
// messages flow frame -> host. Website and document (PDF) frames use
// distinct discriminators so a host embedding both can route cleanly.
const (
	TypeWebsiteControl  = "website-proxy-control"
	TypeDocumentControl = "document-proxy-control"
	TypeWebsiteEvent    = "website-proxy-event"
	TypeDocumentEvent   = "document-proxy-event"
)

// Control actions.
const (
	ActionRenderAnnotations = "render-annotations"
	ActionAddAnnotations    = "add-annotations"
	ActionUnlockDrawing     = "unlock-drawing"
	ActionRemoveLastBox     = "remove-last-box"
	ActionDeleteThreadByID  = "delete-thread-by-id"
	ActionSetMode           = "set-mode"
	ActionHighlightThread   = "highlight-thread"
)

// Event actions.
const (
	EventBoxCreated  = "box-created"
	EventTextEdited  = "text-edited"
	EventPageChanged = "page-changed"
)

// HighlightPulse is how long a highlighted thread stays emphasized.
const HighlightPulse = 2000 * time.Millisecond

// Envelope is the wire form of every control and event message.
// Payload stays raw until a registered handler decodes it.
type Envelope struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an Envelope.
func NewEnvelope(msgType, action string, payload interface{}) (Envelope, error) {
	env := Envelope{Type: msgType, Action: action}
	if payload == nil {
		return env, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = data
	return env, nil
}

// RenderAnnotationsPayload replaces the frame's rendered thread set.
type RenderAnnotationsPayload struct {
	Threads  []models.Thread `json:"threads"`
	Viewport string          `json:"viewport,omitempty"`
}

// AddAnnotationsPayload appends threads without clearing existing ones.
type AddAnnotationsPayload struct {
	Threads []models.Thread `json:"threads"`
}

// SetModePayload switches the frame between browsing and drawing.
type SetModePayload struct {
	Mode string `json:"mode"`
}

// ThreadRefPayload addresses a single thread (highlight, delete).
type ThreadRefPayload struct {
	ThreadID string `json:"threadId"`
}

// BoxCreatedPayload reports a finished drag. Coordinates are already
// normalized by the frame against its own surface measurements.
type BoxCreatedPayload struct {
	BoxID    string      `json:"boxId"`
	Ping     models.Ping `json:"ping"`
	PageURL  string      `json:"pageUrl"`
	Viewport string      `json:"viewport,omitempty"`
}

// TextEditedPayload reports an inline text edit inside the frame.
// Selector is a CSS path uniquely identifying the edited element.
// OldText is the content before the edit so unchanged blurs can be
// filtered out.
type TextEditedPayload struct {
	Selector string `json:"selector"`
	OldText  string `json:"oldText"`
	NewText  string `json:"newText"`
	PageURL  string `json:"pageUrl"`
}

// PageChangedPayload reports frame navigation, including SPA route
// changes surfaced by the navigation observer.
type PageChangedPayload struct {
	URL string `json:"url"`
}
