// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package frames

import (
	"context"
	"errors"

	"github.com/tomtom215/pinpoint/internal/annotation"
	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/models"
)

// Sink delivers a control envelope to the embedded frame.
type Sink interface {
	Send(env annotation.Envelope) error
}

// Hooks are the domain actions a controller triggers from frame events.
// Nil hooks are skipped.
type Hooks struct {
	// OnBoxCreated fires when a drawn box passed the session's draw
	// lock and is waiting for its first comment.
	OnBoxCreated func(ctx context.Context, draft annotation.PendingBox) error

	// OnTextEdited fires for inline edits whose text actually changed.
	// Edit carries the selector and old/new text for persistence; note
	// is the pre-formatted task message.
	OnTextEdited func(ctx context.Context, pageURL string, edit models.TextEdit, note string) error

	// OnPageChanged fires on frame navigation. The caller rebinds the
	// realtime room to the new location.
	OnPageChanged func(ctx context.Context, pageURL string) error
}

// TextEditNote formats the task message recorded for an inline edit.
func TextEditNote(newText string) string {
	return "Edited text: " + newText
}

// Controller is the host-side peer of one embedded frame. It owns the
// session state, translates frame events into hook calls, and exposes
// typed senders for every control action.
type Controller struct {
	session *annotation.Session
	router  *annotation.Router
	sink    Sink
	hooks   Hooks

	controlType string
	eventType   string
}

// NewController wires a controller for the session's canvas kind.
// Website sessions speak the website-proxy discriminators, PDF sessions
// the document-proxy ones.
func NewController(session *annotation.Session, sink Sink, hooks Hooks) *Controller {
	c := &Controller{
		session: session,
		router:  annotation.NewRouter(),
		sink:    sink,
		hooks:   hooks,
	}

	switch session.Kind() {
	case models.CanvasKindPDF:
		c.controlType = annotation.TypeDocumentControl
		c.eventType = annotation.TypeDocumentEvent
	default:
		c.controlType = annotation.TypeWebsiteControl
		c.eventType = annotation.TypeWebsiteEvent
	}

	c.router.Handle(c.eventType, annotation.EventBoxCreated, c.handleBoxCreated)
	c.router.Handle(c.eventType, annotation.EventTextEdited, c.handleTextEdited)
	c.router.Handle(c.eventType, annotation.EventPageChanged, c.handlePageChanged)
	return c
}

// Session returns the controller's session state.
func (c *Controller) Session() *annotation.Session {
	return c.session
}

// HandleRaw routes one raw frame message. Unrecognized messages are
// dropped by the router.
func (c *Controller) HandleRaw(ctx context.Context, data []byte) error {
	return c.router.Dispatch(ctx, data)
}

func (c *Controller) handleBoxCreated(ctx context.Context, env annotation.Envelope) error {
	var p annotation.BoxCreatedPayload
	if err := annotation.DecodePayload(env, &p); err != nil {
		logging.Debug().Err(err).Msg("dropping malformed box-created payload")
		return nil
	}

	draft, err := c.session.BeginBox(p.Ping, p.PageURL)
	if errors.Is(err, annotation.ErrDrawLocked) {
		// One box at a time. Tell the frame to discard the extra one.
		return c.send(annotation.ActionRemoveLastBox, nil)
	}
	if errors.Is(err, annotation.ErrStaleVersion) {
		// Authoring is latest-version only. Abandon the box and release
		// the frame's draw lock so the UI does not wedge.
		logging.Warn().Str("session", c.session.ID()).Msg("box-created on a superseded version, rejecting")
		if err := c.send(annotation.ActionRemoveLastBox, nil); err != nil {
			return err
		}
		return c.send(annotation.ActionUnlockDrawing, nil)
	}
	if errors.Is(err, annotation.ErrNotDrawing) {
		logging.Debug().Str("session", c.session.ID()).Msg("box-created outside draw mode, ignoring")
		return nil
	}
	if err != nil {
		return err
	}

	if c.hooks.OnBoxCreated != nil {
		return c.hooks.OnBoxCreated(ctx, draft)
	}
	return nil
}

func (c *Controller) handleTextEdited(ctx context.Context, env annotation.Envelope) error {
	var p annotation.TextEditedPayload
	if err := annotation.DecodePayload(env, &p); err != nil {
		logging.Debug().Err(err).Msg("dropping malformed text-edited payload")
		return nil
	}

	// Blur without an actual change is not worth a task.
	if p.OldText == p.NewText {
		return nil
	}

	if !c.session.OnLatestVersion() {
		logging.Warn().Str("session", c.session.ID()).Msg("text-edited on a superseded version, rejecting")
		return nil
	}

	if c.hooks.OnTextEdited != nil {
		edit := models.TextEdit{Selector: p.Selector, OldText: p.OldText, NewText: p.NewText}
		return c.hooks.OnTextEdited(ctx, p.PageURL, edit, TextEditNote(p.NewText))
	}
	return nil
}

func (c *Controller) handlePageChanged(ctx context.Context, env annotation.Envelope) error {
	var p annotation.PageChangedPayload
	if err := annotation.DecodePayload(env, &p); err != nil {
		logging.Debug().Err(err).Msg("dropping malformed page-changed payload")
		return nil
	}
	if p.URL == "" {
		return nil
	}

	if c.hooks.OnPageChanged != nil {
		return c.hooks.OnPageChanged(ctx, p.URL)
	}
	return nil
}

// RenderAnnotations replaces the frame's thread set with the threads
// visible under the session's viewport filter.
func (c *Controller) RenderAnnotations(threads []models.Thread) error {
	return c.send(annotation.ActionRenderAnnotations, annotation.RenderAnnotationsPayload{
		Threads:  c.session.FilterThreads(threads),
		Viewport: c.session.Viewport(),
	})
}

// AddAnnotations appends threads without re-rendering the full set.
func (c *Controller) AddAnnotations(threads []models.Thread) error {
	visible := c.session.FilterThreads(threads)
	if len(visible) == 0 {
		return nil
	}
	return c.send(annotation.ActionAddAnnotations, annotation.AddAnnotationsPayload{Threads: visible})
}

// SetMode switches the frame between browse and draw.
func (c *Controller) SetMode(mode string) error {
	c.session.SetMode(mode)
	return c.send(annotation.ActionSetMode, annotation.SetModePayload{Mode: mode})
}

// UnlockDrawing releases the draw lock after the pending box was saved
// or its comment form dismissed.
func (c *Controller) UnlockDrawing() error {
	c.session.Unlock()
	return c.send(annotation.ActionUnlockDrawing, nil)
}

// RemoveLastBox discards the most recent pending box both host-side and
// in the frame.
func (c *Controller) RemoveLastBox() error {
	if _, ok := c.session.RemoveLastBox(); !ok {
		return nil
	}
	return c.send(annotation.ActionRemoveLastBox, nil)
}

// DeleteThread removes a thread's rendered boxes from the frame.
func (c *Controller) DeleteThread(threadID string) error {
	return c.send(annotation.ActionDeleteThreadByID, annotation.ThreadRefPayload{ThreadID: threadID})
}

// HighlightThread pulses a thread's boxes in the frame.
func (c *Controller) HighlightThread(threadID string) error {
	c.session.Highlight(threadID)
	return c.send(annotation.ActionHighlightThread, annotation.ThreadRefPayload{ThreadID: threadID})
}

func (c *Controller) send(action string, payload interface{}) error {
	env, err := annotation.NewEnvelope(c.controlType, action, payload)
	if err != nil {
		return err
	}
	return c.sink.Send(env)
}
