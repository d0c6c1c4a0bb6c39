// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package annotation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/pinpoint/internal/models"
)

// Frame modes.
const (
	ModeBrowse = "browse"
	ModeDraw   = "draw"
)

var (
	// ErrDrawLocked means a box is already in flight for this session.
	ErrDrawLocked = errors.New("annotation: drawing locked until pending box is saved or canceled")

	// ErrNotDrawing means the session is not in draw mode.
	ErrNotDrawing = errors.New("annotation: session is not in draw mode")

	// ErrStaleVersion means the session is viewing a superseded version.
	// Only the latest version of a canvas accepts new annotations.
	ErrStaleVersion = errors.New("annotation: only the latest version accepts new annotations")
)

// PendingBox is a drawn box awaiting its first comment. VersionID is the
// version the box was drawn on, carried into the persistence request as
// a latest-version assertion.
type PendingBox struct {
	ID        string
	Ping      models.Ping
	PageURL   string
	Viewport  string
	VersionID string
}

// Session holds all mutable renderer state for one connected frame.
// All state lives here rather than in package globals so concurrent
// sessions in one process never interfere.
type Session struct {
	mu sync.Mutex

	id       string
	kind     string
	viewport string
	mode     string

	versionID       string
	latestVersionID string

	drawLocked bool
	boxSeq     uint64
	pending    []PendingBox

	highlightID       string
	highlightDeadline time.Time

	now func() time.Time
}

// NewSession creates a session in browse mode.
// Kind is models.CanvasKindWebsite or models.CanvasKindPDF.
func NewSession(id, kind string) *Session {
	return &Session{
		id:   id,
		kind: kind,
		mode: ModeBrowse,
		now:  time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Kind returns the canvas kind this session annotates.
func (s *Session) Kind() string { return s.kind }

// SetVersion records which version the session is viewing and which
// version is currently the latest. When they differ, authoring actions
// are rejected with ErrStaleVersion. A session that never calls this
// (both ids empty) is treated as being on the latest version.
func (s *Session) SetVersion(viewedID, latestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versionID = viewedID
	s.latestVersionID = latestID
}

// VersionID returns the version the session is viewing.
func (s *Session) VersionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionID
}

// OnLatestVersion reports whether the session may author annotations.
func (s *Session) OnLatestVersion() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versionID == s.latestVersionID
}

// SetViewport records the viewport preset the session is reviewing.
// An empty viewport means "all viewports".
func (s *Session) SetViewport(viewport string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = viewport
}

// Viewport returns the active viewport preset.
func (s *Session) Viewport() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetMode switches between browse and draw. Leaving draw mode cancels any
// pending box and releases the draw lock.
func (s *Session) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	if mode != ModeDraw {
		s.drawLocked = false
		s.pending = nil
	}
}

// Mode returns the current mode.
func (s *Session) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// BeginBox registers a newly drawn box and locks further drawing until
// Unlock or RemoveLastBox. The caller normalizes coordinates first; only
// one box may be in flight per session, and only on the latest version.
func (s *Session) BeginBox(ping models.Ping, pageURL string) (PendingBox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeDraw {
		return PendingBox{}, ErrNotDrawing
	}
	if s.versionID != s.latestVersionID {
		return PendingBox{}, ErrStaleVersion
	}
	if s.drawLocked {
		return PendingBox{}, ErrDrawLocked
	}

	s.boxSeq++
	box := PendingBox{
		ID:        fmt.Sprintf("box-%d-%d", s.now().UnixMilli(), s.boxSeq),
		Ping:      ping,
		PageURL:   pageURL,
		Viewport:  s.viewport,
		VersionID: s.versionID,
	}
	s.pending = append(s.pending, box)
	s.drawLocked = true
	return box, nil
}

// Unlock releases the draw lock after the pending box was persisted or
// the comment form was dismissed. Pending boxes are kept; the persisted
// thread replaces them on the next render.
func (s *Session) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawLocked = false
	s.pending = nil
}

// RemoveLastBox discards the most recent pending box and releases the
// draw lock. Reports false when nothing was pending.
func (s *Session) RemoveLastBox() (PendingBox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return PendingBox{}, false
	}
	box := s.pending[len(s.pending)-1]
	s.pending = s.pending[:len(s.pending)-1]
	s.drawLocked = false
	return box, true
}

// Locked reports whether a box is currently in flight.
func (s *Session) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked
}

// ShouldRender applies the viewport filter: a thread renders when the
// session has no viewport selected or the thread was drawn on the same
// viewport preset.
func (s *Session) ShouldRender(t models.Thread) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport == "" || t.Viewport == s.viewport
}

// FilterThreads returns the subset of threads visible in this session.
func (s *Session) FilterThreads(threads []models.Thread) []models.Thread {
	s.mu.Lock()
	viewport := s.viewport
	s.mu.Unlock()

	if viewport == "" {
		return threads
	}

	visible := make([]models.Thread, 0, len(threads))
	for _, t := range threads {
		if t.Viewport == viewport {
			visible = append(visible, t)
		}
	}
	return visible
}

// Highlight pulses a thread for HighlightPulse.
func (s *Session) Highlight(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlightID = threadID
	s.highlightDeadline = s.now().Add(HighlightPulse)
}

// ActiveHighlight returns the highlighted thread id while the pulse is
// still running.
func (s *Session) ActiveHighlight() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.highlightID == "" || s.now().After(s.highlightDeadline) {
		return "", false
	}
	return s.highlightID, true
}
