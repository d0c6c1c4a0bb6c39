// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package models defines the canvas document model and the API response
// envelope shared by the HTTP and realtime layers.
package models

import (
	"time"
)

// Canvas kinds. A canvas annotates either a proxied website or a PDF.
const (
	CanvasKindWebsite = "website"
	CanvasKindPDF     = "pdf"
)

// Comment types.
const (
	CommentTypeComment = "comment"
	CommentTypeTask    = "task"
)

// Task statuses.
const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
)

// TombstoneMessage replaces the text of a deleted comment.
const TombstoneMessage = "Comment Deleted"

// Ping is a rectangular annotation anchor in fractional coordinates.
// X, Y, Width and Height are fractions of the annotated surface in [0,1],
// so the same ping renders correctly at any viewport size.
type Ping struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TombstonePing is the ping stored on deleted comments. The negative
// position keeps tombstones out of any rendered surface.
func TombstonePing() Ping {
	return Ping{X: -1, Y: -1, Width: 0, Height: 0}
}

// TextEdit is the payload of an inline text-change annotation. Selector
// is a CSS path uniquely identifying the edited element; OldText and
// NewText let the panel show what changed without re-reading the page.
type TextEdit struct {
	Selector string `json:"selector"`
	OldText  string `json:"oldText"`
	NewText  string `json:"newText"`
}

// Comment is a single entry in a thread. Comments[0] of a thread carries
// the anchor ping; replies inherit the thread position. TextEdit is set
// when the annotation target was an in-page text edit rather than a
// drawn box.
type Comment struct {
	ID          string    `json:"id"`
	AuthorEmail string    `json:"authorEmail"`
	AuthorName  string    `json:"authorName"`
	Message     string    `json:"message"`
	Type        string    `json:"commentType"`
	TaskStatus  string    `json:"taskStatus,omitempty"`
	Ping        Ping      `json:"ping"`
	TextEdit    *TextEdit `json:"textEdit,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Edited      bool      `json:"edited,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
}

// Tombstone rewrites the comment in place as a deletion marker.
// The author fields survive so the panel can still attribute the slot.
func (c *Comment) Tombstone(now time.Time) {
	c.Message = TombstoneMessage
	c.Ping = TombstonePing()
	c.Deleted = true
	c.UpdatedAt = now
}

// Thread is an ordered conversation anchored at one ping.
type Thread struct {
	ID       string    `json:"id"`
	Viewport string    `json:"viewport,omitempty"`
	Comments []Comment `json:"comments"`
}

// LatestComment returns the last comment of the thread, or nil when empty.
func (t *Thread) LatestComment() *Comment {
	if len(t.Comments) == 0 {
		return nil
	}
	return &t.Comments[len(t.Comments)-1]
}

// PageLink groups the threads of one page within a version. For PDFs the
// URL carries the page index as a "#page=<n>" fragment.
type PageLink struct {
	URL     string   `json:"url"`
	Threads []Thread `json:"threads"`
}

// Version is one append-only snapshot of a canvas. Versions are never
// mutated after a newer version exists; all writes target the latest one.
type Version struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	PageLinks []PageLink `json:"pageLinks"`
}

// Canvas is the root document for one annotated target.
type Canvas struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	AdminEmail string    `json:"adminEmail"`
	RoomID     string    `json:"roomId"`
	Kind       string    `json:"kind"`
	TargetURL  string    `json:"targetUrl"`
	Guests     []string  `json:"guests,omitempty"`
	Versions   []Version `json:"versions"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LatestVersion returns the newest version, or nil for an empty canvas.
func (c *Canvas) LatestVersion() *Version {
	if len(c.Versions) == 0 {
		return nil
	}
	return &c.Versions[len(c.Versions)-1]
}

// HasGuest reports whether the email is on the canvas guest list.
func (c *Canvas) HasGuest(email string) bool {
	for _, g := range c.Guests {
		if g == email {
			return true
		}
	}
	return false
}

// TaskRow is one entry of the task list view, flattened from the document
// tree. PathKey addresses the comment positionally ("v#0/pl#2/th#1/c#0");
// RowKey is the human-readable grouping label.
type TaskRow struct {
	RowKey      string    `json:"rowKey"`
	PathKey     string    `json:"pathKey"`
	ThreadID    string    `json:"threadId"`
	CommentID   string    `json:"commentId"`
	PageURL     string    `json:"pageUrl"`
	Viewport    string    `json:"viewport,omitempty"`
	Message     string    `json:"message"`
	AuthorEmail string    `json:"authorEmail"`
	AuthorName  string    `json:"authorName"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
