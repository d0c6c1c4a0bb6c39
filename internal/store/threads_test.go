// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/pinpoint/internal/models"
)

func saveTestThread(t *testing.T, s *CanvasStore, pageURL string) *models.Thread {
	t.Helper()

	thread, err := s.SaveThread(context.Background(), "acme-homepage", pageURL, models.Thread{
		Viewport: "desktop",
		Comments: []models.Comment{{
			AuthorEmail: "reviewer@acme.test",
			AuthorName:  "Reviewer",
			Message:     "logo is misaligned",
			Ping:        models.Ping{X: 0.1, Y: 0.2, Width: 0.05, Height: 0.05},
		}},
	}, "")
	if err != nil {
		t.Fatalf("SaveThread() failed: %v", err)
	}
	return thread
}

func TestSaveThreadStampsIdentityAndFindsOrCreatesPageLink(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	ctx := context.Background()

	// Existing page link.
	th1 := saveTestThread(t, s, "https://acme.test/")
	if th1.ID == "" || th1.Comments[0].ID == "" {
		t.Error("SaveThread() must stamp thread and comment ids")
	}
	if th1.Comments[0].CreatedAt.IsZero() {
		t.Error("SaveThread() must stamp comment timestamps")
	}
	if th1.Comments[0].Type != models.CommentTypeComment {
		t.Errorf("default comment type = %q", th1.Comments[0].Type)
	}

	// New page link created on demand.
	saveTestThread(t, s, "https://acme.test/pricing")

	canvas, err := s.GetCanvas(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("GetCanvas() failed: %v", err)
	}
	latest := canvas.LatestVersion()
	if len(latest.PageLinks) != 2 {
		t.Fatalf("page links = %d, want 2", len(latest.PageLinks))
	}
	if len(latest.PageLinks[0].Threads) != 1 || len(latest.PageLinks[1].Threads) != 1 {
		t.Errorf("thread distribution = %+v", latest.PageLinks)
	}
}

func TestSaveThreadTargetsLatestVersionOnly(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	ctx := context.Background()

	if _, err := s.AppendVersion(ctx, "acme-homepage"); err != nil {
		t.Fatalf("AppendVersion() failed: %v", err)
	}
	saveTestThread(t, s, "https://acme.test/")

	canvas, err := s.GetCanvas(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("GetCanvas() failed: %v", err)
	}
	if n := len(canvas.Versions[0].PageLinks[0].Threads); n != 0 {
		t.Errorf("old version got %d threads, want 0", n)
	}
	if n := len(canvas.LatestVersion().PageLinks[0].Threads); n != 1 {
		t.Errorf("latest version threads = %d, want 1", n)
	}
}

func TestSaveThreadRejectsSupersededVersionAssertion(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	ctx := context.Background()

	canvas, err := s.GetCanvas(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("GetCanvas() failed: %v", err)
	}
	oldVersionID := canvas.LatestVersion().ID

	v2, err := s.AppendVersion(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("AppendVersion() failed: %v", err)
	}

	thread := models.Thread{
		Comments: []models.Comment{{AuthorEmail: "reviewer@acme.test", Message: "note"}},
	}

	// A viewer still on the old version must not write into the new one.
	_, err = s.SaveThread(ctx, "acme-homepage", "https://acme.test/", thread, oldVersionID)
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("SaveThread() with stale assertion error = %v, want ErrStaleVersion", err)
	}

	// Asserting the latest version succeeds.
	if _, err := s.SaveThread(ctx, "acme-homepage", "https://acme.test/", thread, v2.ID); err != nil {
		t.Errorf("SaveThread() with latest assertion failed: %v", err)
	}
}

func TestSaveThreadPersistsTextEdit(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	ctx := context.Background()

	saved, err := s.SaveThread(ctx, "acme-homepage", "https://acme.test/", models.Thread{
		Comments: []models.Comment{{
			AuthorEmail: "reviewer@acme.test",
			Message:     "Edited text: Welcome to Acme",
			Type:        models.CommentTypeTask,
			TextEdit: &models.TextEdit{
				Selector: "#hero > h1",
				OldText:  "Welcome",
				NewText:  "Welcome to Acme",
			},
		}},
	}, "")
	if err != nil {
		t.Fatalf("SaveThread() failed: %v", err)
	}
	if saved.Comments[0].TextEdit == nil {
		t.Fatal("SaveThread() dropped the text-edit payload")
	}

	canvas, err := s.GetCanvas(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("GetCanvas() failed: %v", err)
	}
	stored := canvas.LatestVersion().PageLinks[0].Threads[0].Comments[0].TextEdit
	if stored == nil {
		t.Fatal("stored comment lost the text-edit payload")
	}
	if stored.Selector != "#hero > h1" || stored.OldText != "Welcome" || stored.NewText != "Welcome to Acme" {
		t.Errorf("stored text edit = %+v", stored)
	}
}

func TestThreadInSupersededVersionIsStale(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	ctx := context.Background()
	th := saveTestThread(t, s, "https://acme.test/")

	if _, err := s.AppendVersion(ctx, "acme-homepage"); err != nil {
		t.Fatalf("AppendVersion() failed: %v", err)
	}

	_, err := s.AddComment(ctx, "acme-homepage", th.ID, models.Comment{
		AuthorEmail: "dev@acme.test",
		Message:     "too late",
	})
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("AddComment() on superseded thread error = %v, want ErrStaleVersion", err)
	}

	_, err = s.AddComment(ctx, "acme-homepage", "th-never-existed", models.Comment{
		AuthorEmail: "dev@acme.test",
		Message:     "nope",
	})
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("AddComment() on unknown thread error = %v, want ErrThreadNotFound", err)
	}
}

func TestAddCommentReply(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	th := saveTestThread(t, s, "https://acme.test/")

	reply, err := s.AddComment(context.Background(), "acme-homepage", th.ID, models.Comment{
		AuthorEmail: "dev@acme.test",
		AuthorName:  "Dev",
		Message:     "fixed in next build",
	})
	if err != nil {
		t.Fatalf("AddComment() failed: %v", err)
	}
	if reply.ID == "" {
		t.Error("AddComment() must stamp the comment id")
	}

	canvas, _ := s.GetCanvas(context.Background(), "acme-homepage")
	threads := canvas.LatestVersion().PageLinks[0].Threads
	if len(threads[0].Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(threads[0].Comments))
	}

	if _, err := s.AddComment(context.Background(), "acme-homepage", "missing", models.Comment{}); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("AddComment() to missing thread error = %v, want ErrThreadNotFound", err)
	}
}

func TestEditCommentOnceByAuthorOnly(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	th := saveTestThread(t, s, "https://acme.test/")
	ctx := context.Background()
	commentID := th.Comments[0].ID

	// Non-author rejected.
	_, err := s.EditComment(ctx, "acme-homepage", th.ID, commentID, "hijacked", "mallory@acme.test")
	if !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("EditComment() by non-author error = %v, want ErrNotAuthor", err)
	}

	// Author edit succeeds once.
	edited, err := s.EditComment(ctx, "acme-homepage", th.ID, commentID, "logo is misaligned on mobile", "reviewer@acme.test")
	if err != nil {
		t.Fatalf("EditComment() failed: %v", err)
	}
	if !edited.Edited || edited.Message != "logo is misaligned on mobile" {
		t.Errorf("edited comment = %+v", edited)
	}

	// Second edit rejected.
	_, err = s.EditComment(ctx, "acme-homepage", th.ID, commentID, "again", "reviewer@acme.test")
	if !errors.Is(err, ErrAlreadyEdited) {
		t.Fatalf("second EditComment() error = %v, want ErrAlreadyEdited", err)
	}
}

func TestEditCommentLatestOnly(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	th := saveTestThread(t, s, "https://acme.test/")
	ctx := context.Background()
	firstID := th.Comments[0].ID

	if _, err := s.AddComment(ctx, "acme-homepage", th.ID, models.Comment{
		AuthorEmail: "dev@acme.test", Message: "reply",
	}); err != nil {
		t.Fatalf("AddComment() failed: %v", err)
	}

	// First comment is no longer the tail.
	_, err := s.EditComment(ctx, "acme-homepage", th.ID, firstID, "too late", "reviewer@acme.test")
	if !errors.Is(err, ErrNotLatestComment) {
		t.Fatalf("EditComment() on non-latest error = %v, want ErrNotLatestComment", err)
	}

	// Unknown id is a distinct failure.
	_, err = s.EditComment(ctx, "acme-homepage", th.ID, "ghost", "text", "reviewer@acme.test")
	if !errors.Is(err, ErrCommentNotInThread) {
		t.Fatalf("EditComment() unknown id error = %v, want ErrCommentNotInThread", err)
	}
}

func TestDeleteCommentTombstone(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	th := saveTestThread(t, s, "https://acme.test/")
	ctx := context.Background()
	commentID := th.Comments[0].ID

	// Anyone but the author is rejected, the canvas admin included.
	if _, err := s.DeleteComment(ctx, "acme-homepage", th.ID, commentID, "mallory@acme.test"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("DeleteComment() by stranger error = %v, want ErrNotAuthor", err)
	}
	if _, err := s.DeleteComment(ctx, "acme-homepage", th.ID, commentID, "admin@acme.test"); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("DeleteComment() by admin error = %v, want ErrNotAuthor", err)
	}

	deleted, err := s.DeleteComment(ctx, "acme-homepage", th.ID, commentID, "reviewer@acme.test")
	if err != nil {
		t.Fatalf("DeleteComment() by author failed: %v", err)
	}
	if !deleted.Deleted {
		t.Error("comment should be marked deleted")
	}
	if deleted.Message != models.TombstoneMessage {
		t.Errorf("tombstone message = %q, want %q", deleted.Message, models.TombstoneMessage)
	}
	if deleted.Ping.X != -1 || deleted.Ping.Y != -1 || deleted.Ping.Width != 0 || deleted.Ping.Height != 0 {
		t.Errorf("tombstone ping = %+v", deleted.Ping)
	}
	if deleted.AuthorEmail != "reviewer@acme.test" {
		t.Error("tombstone must keep attribution")
	}

	// The slot remains; deleting again is rejected.
	canvas, _ := s.GetCanvas(ctx, "acme-homepage")
	if n := len(canvas.LatestVersion().PageLinks[0].Threads[0].Comments); n != 1 {
		t.Errorf("comment slots = %d, want 1", n)
	}
	if _, err := s.DeleteComment(ctx, "acme-homepage", th.ID, commentID, "reviewer@acme.test"); !errors.Is(err, ErrCommentDeleted) {
		t.Errorf("second delete error = %v, want ErrCommentDeleted", err)
	}
}

func TestDeleteCommentLatestOnlyDistinguishesMissing(t *testing.T) {
	s := newTestStore(t)
	seedCanvas(t, s)
	th := saveTestThread(t, s, "https://acme.test/")
	ctx := context.Background()
	firstID := th.Comments[0].ID

	if _, err := s.AddComment(ctx, "acme-homepage", th.ID, models.Comment{
		AuthorEmail: "dev@acme.test", Message: "reply",
	}); err != nil {
		t.Fatalf("AddComment() failed: %v", err)
	}

	if _, err := s.DeleteComment(ctx, "acme-homepage", th.ID, firstID, "reviewer@acme.test"); !errors.Is(err, ErrNotLatestComment) {
		t.Errorf("delete non-latest error = %v, want ErrNotLatestComment", err)
	}
	if _, err := s.DeleteComment(ctx, "acme-homepage", th.ID, "ghost", "reviewer@acme.test"); !errors.Is(err, ErrCommentNotInThread) {
		t.Errorf("delete unknown id error = %v, want ErrCommentNotInThread", err)
	}
}
