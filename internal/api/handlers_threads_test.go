// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/pinpoint/internal/models"
	"github.com/tomtom215/pinpoint/internal/websocket"
)

func (env *testEnv) createThread(t *testing.T, token, slug, message, commentType string) *models.Thread {
	t.Helper()
	var thread models.Thread
	rec, apiErr := env.do(t, http.MethodPost, "/api/canvases/"+slug+"/threads", token, SaveThreadRequest{
		PageURL: "https://acme.test",
		Message: message,
		Type:    commentType,
		Ping:    PingRequest{X: 0.25, Y: 0.5, Width: 0.1, Height: 0.05},
	}, &thread)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create thread status = %d, error = %+v", rec.Code, apiErr)
	}
	return &thread
}

// drainEvents empties the capture channel so later assertions see only
// the events of the step under test.
func (env *testEnv) drainEvents() {
	for {
		select {
		case <-env.publisher.events:
		case <-time.After(200 * time.Millisecond):
			return
		}
	}
}

func TestSaveThreadStampsIdentity(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	thread := env.createThread(t, admin, "acme", "Logo is misaligned", "")

	if thread.ID == "" {
		t.Error("thread id not stamped")
	}
	if len(thread.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(thread.Comments))
	}
	anchor := thread.Comments[0]
	if anchor.ID == "" || anchor.AuthorEmail != "admin@acme.test" || anchor.AuthorName != "Admin" {
		t.Errorf("anchor attribution wrong: %+v", anchor)
	}
	if anchor.Type != models.CommentTypeComment {
		t.Errorf("type = %q, want comment", anchor.Type)
	}
	if anchor.Ping.X != 0.25 || anchor.Ping.Width != 0.1 {
		t.Errorf("ping not preserved: %+v", anchor.Ping)
	}

	// Creation publishes the thread and its anchor comment.
	types := map[string]bool{}
	for i := 0; i < 2; i++ {
		e := env.publisher.next(t)
		types[e.Type] = true
		if e.CanvasSlug != "acme" {
			t.Errorf("event slug = %q", e.CanvasSlug)
		}
	}
	if !types[websocket.MessageTypeThreadAdded] || !types[websocket.MessageTypeCommentAdded] {
		t.Errorf("event types = %v", types)
	}
}

func TestSaveThreadRejectsOutOfRangePing(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	rec, apiErr := env.do(t, http.MethodPost, "/api/canvases/acme/threads", admin, SaveThreadRequest{
		PageURL: "https://acme.test",
		Message: "bad ping",
		Ping:    PingRequest{X: 1.5},
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestCommentReplyEditDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	thread := env.createThread(t, admin, "acme", "Anchor", "")
	env.drainEvents()

	base := "/api/canvases/acme/threads/" + thread.ID + "/comments"

	// Reply.
	var reply models.Comment
	rec, apiErr := env.do(t, http.MethodPost, base, admin, AddCommentRequest{Message: "First reply"}, &reply)
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply status = %d, error = %+v", rec.Code, apiErr)
	}
	if e := env.publisher.next(t); e.Type != websocket.MessageTypeCommentReplied {
		t.Errorf("reply event type = %q", e.Type)
	}

	// Edit the latest comment once.
	var edited models.Comment
	rec, apiErr = env.do(t, http.MethodPatch, base+"/"+reply.ID, admin, EditCommentRequest{Message: "First reply, fixed"}, &edited)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, error = %+v", rec.Code, apiErr)
	}
	if !edited.Edited || edited.Message != "First reply, fixed" {
		t.Errorf("edited comment = %+v", edited)
	}
	if e := env.publisher.next(t); e.Type != websocket.MessageTypeCommentEdited {
		t.Errorf("edit event type = %q", e.Type)
	}

	// A second edit is rejected.
	rec, apiErr = env.do(t, http.MethodPatch, base+"/"+reply.ID, admin, EditCommentRequest{Message: "again"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second edit status = %d, want 409", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "CONFLICT" {
		t.Errorf("second edit error = %+v", apiErr)
	}

	// Editing the non-latest anchor is rejected with the stale message.
	rec, apiErr = env.do(t, http.MethodPatch, base+"/"+thread.Comments[0].ID, admin, EditCommentRequest{Message: "stale"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale edit status = %d, want 409", rec.Code)
	}
	if apiErr == nil || apiErr.Message != "Only the latest comment can be edited/deleted" {
		t.Errorf("stale edit error = %+v", apiErr)
	}

	// Delete tombstones the latest comment.
	var deleted models.Comment
	rec, apiErr = env.do(t, http.MethodDelete, base+"/"+reply.ID, admin, nil, &deleted)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, error = %+v", rec.Code, apiErr)
	}
	if !deleted.Deleted || deleted.Message != models.TombstoneMessage {
		t.Errorf("tombstone = %+v", deleted)
	}
	if deleted.Ping.X != -1 || deleted.Ping.Y != -1 {
		t.Errorf("tombstone ping = %+v", deleted.Ping)
	}
	if deleted.AuthorEmail != "admin@acme.test" {
		t.Errorf("tombstone lost attribution: %+v", deleted)
	}
	if e := env.publisher.next(t); e.Type != websocket.MessageTypeCommentDeleted {
		t.Errorf("delete event type = %q", e.Type)
	}
}

func TestSaveThreadWithSupersededVersionAssertion(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	canvas := env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	oldVersionID := canvas.Versions[0].ID

	var v2 models.Version
	rec, apiErr := env.do(t, http.MethodPost, "/api/canvases/acme/versions", admin, nil, &v2)
	if rec.Code != http.StatusCreated {
		t.Fatalf("append version status = %d, error = %+v", rec.Code, apiErr)
	}
	env.drainEvents()

	// A viewer still on the old version gets a stale-version conflict.
	rec, apiErr = env.do(t, http.MethodPost, "/api/canvases/acme/threads", admin, SaveThreadRequest{
		PageURL:   "https://acme.test",
		VersionID: oldVersionID,
		Message:   "drawn on an old snapshot",
		Ping:      PingRequest{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1},
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale save status = %d, want 409", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "STALE_VERSION" {
		t.Errorf("stale save error = %+v, want STALE_VERSION", apiErr)
	}

	// Nothing was persisted and no event was published.
	select {
	case e := <-env.publisher.events:
		t.Errorf("unexpected event published: %+v", e)
	default:
	}

	// Asserting the latest version succeeds.
	rec, apiErr = env.do(t, http.MethodPost, "/api/canvases/acme/threads", admin, SaveThreadRequest{
		PageURL:   "https://acme.test",
		VersionID: v2.ID,
		Message:   "drawn on the latest snapshot",
		Ping:      PingRequest{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1},
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("latest save status = %d, error = %+v", rec.Code, apiErr)
	}
}

func TestSaveThreadPersistsTextEditPayload(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	var thread models.Thread
	rec, apiErr := env.do(t, http.MethodPost, "/api/canvases/acme/threads", admin, SaveThreadRequest{
		PageURL: "https://acme.test",
		Message: "Edited text: Welcome to Acme",
		Type:    models.CommentTypeTask,
		Ping:    PingRequest{X: 0.2, Y: 0.3, Width: 0.1, Height: 0.05},
		TextEdit: &TextEditRequest{
			Selector: "#hero > h1",
			OldText:  "Welcome",
			NewText:  "Welcome to Acme",
		},
	}, &thread)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, error = %+v", rec.Code, apiErr)
	}

	te := thread.Comments[0].TextEdit
	if te == nil {
		t.Fatal("text-edit payload missing from the stored comment")
	}
	if te.Selector != "#hero > h1" || te.OldText != "Welcome" || te.NewText != "Welcome to Acme" {
		t.Errorf("text edit = %+v", te)
	}
}

func TestReplyToSupersededThreadIsStaleVersion(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	thread := env.createThread(t, admin, "acme", "Anchor", "")

	rec, apiErr := env.do(t, http.MethodPost, "/api/canvases/acme/versions", admin, nil, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("append version status = %d, error = %+v", rec.Code, apiErr)
	}

	rec, apiErr = env.do(t, http.MethodPost, "/api/canvases/acme/threads/"+thread.ID+"/comments", admin,
		AddCommentRequest{Message: "too late"}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reply status = %d, want 409", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "STALE_VERSION" {
		t.Errorf("error = %+v, want STALE_VERSION", apiErr)
	}
}

func TestGuestCannotEditOthersComment(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	thread := env.createThread(t, admin, "acme", "Anchor", "")

	guest := env.guestToken(t, "acme")
	path := "/api/canvases/acme/threads/" + thread.ID + "/comments/" + thread.Comments[0].ID

	rec, apiErr := env.do(t, http.MethodPatch, path, guest, EditCommentRequest{Message: "hijack"}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "FORBIDDEN" {
		t.Errorf("error = %+v", apiErr)
	}
}

func TestOnlyAuthorCanDeleteComment(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	guest := env.guestToken(t, "acme")
	thread := env.createThread(t, guest, "acme", "Guest anchor", "")
	env.drainEvents()

	path := "/api/canvases/acme/threads/" + thread.ID + "/comments/" + thread.Comments[0].ID

	// Even the canvas admin cannot delete someone else's comment.
	rec, apiErr := env.do(t, http.MethodDelete, path, admin, nil, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin delete status = %d, want 403", rec.Code)
	}
	if apiErr == nil || apiErr.Code != "FORBIDDEN" {
		t.Errorf("admin delete error = %+v", apiErr)
	}

	var deleted models.Comment
	rec, apiErr = env.do(t, http.MethodDelete, path, guest, nil, &deleted)
	if rec.Code != http.StatusOK {
		t.Fatalf("author delete status = %d, error = %+v", rec.Code, apiErr)
	}
	if !deleted.Deleted {
		t.Errorf("comment not tombstoned: %+v", deleted)
	}
}

func TestMutationCarriesSenderID(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	raw, _ := json.Marshal(SaveThreadRequest{
		PageURL: "https://acme.test",
		Message: "From a connected client",
		Ping:    PingRequest{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/canvases/acme/threads", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("X-Client-ID", "42")

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	for i := 0; i < 2; i++ {
		if e := env.publisher.next(t); e.SenderID != 42 {
			t.Errorf("sender id = %d, want 42", e.SenderID)
		}
	}
}

func TestEventNotPublishedOnFailedCommit(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	env.drainEvents()

	rec, _ := env.do(t, http.MethodPost, "/api/canvases/acme/threads/missing-thread/comments", admin,
		AddCommentRequest{Message: "orphan"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	select {
	case e := <-env.publisher.events:
		t.Errorf("unexpected event published: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}
