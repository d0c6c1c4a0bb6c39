// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/pinpoint/internal/models"
	"github.com/tomtom215/pinpoint/internal/websocket"
)

func TestTaskListAndStatusUpdate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	env.createThread(t, admin, "acme", "Plain comment", models.CommentTypeComment)
	thread := env.createThread(t, admin, "acme", "Fix the header", models.CommentTypeTask)
	env.drainEvents()

	var rows []models.TaskRow
	rec, apiErr := env.do(t, http.MethodGet, "/api/canvases/acme/tasks", admin, nil, &rows)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, error = %+v", rec.Code, apiErr)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1 (plain comments excluded)", len(rows))
	}
	row := rows[0]
	if row.Message != "Fix the header" || row.Status != models.TaskStatusActive {
		t.Errorf("row = %+v", row)
	}
	if row.PathKey == "" || row.RowKey == "" {
		t.Errorf("row keys missing: %+v", row)
	}

	// Complete the task by path key.
	var updated models.Comment
	rec, apiErr = env.do(t, http.MethodPatch, "/api/canvases/acme/tasks", admin, UpdateTaskRequest{
		PathKey: row.PathKey,
		Status:  models.TaskStatusCompleted,
	}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, error = %+v", rec.Code, apiErr)
	}
	if updated.TaskStatus != models.TaskStatusCompleted {
		t.Errorf("task status = %q, want completed", updated.TaskStatus)
	}
	if updated.ID != thread.Comments[0].ID {
		t.Errorf("updated wrong comment: %q", updated.ID)
	}
	if e := env.publisher.next(t); e.Type != websocket.MessageTypeTaskStatusUpdated {
		t.Errorf("event type = %q", e.Type)
	}
}

func TestTaskUpdateFallsBackToCommentID(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	thread := env.createThread(t, admin, "acme", "Task via fallback", models.CommentTypeTask)
	env.drainEvents()

	// Out-of-bounds path key plus a valid comment id resolves via the
	// fallback scan.
	var updated models.Comment
	rec, apiErr := env.do(t, http.MethodPatch, "/api/canvases/acme/tasks", admin, UpdateTaskRequest{
		PathKey:   "v#9/pl#9/th#9/c#9",
		CommentID: thread.Comments[0].ID,
		Status:    models.TaskStatusCompleted,
	}, &updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", rec.Code, apiErr)
	}
	if updated.TaskStatus != models.TaskStatusCompleted {
		t.Errorf("task status = %q", updated.TaskStatus)
	}
}

func TestTaskUpdateRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")
	env.createThread(t, admin, "acme", "Admin only", models.CommentTypeTask)

	guest := env.guestToken(t, "acme")
	rec, _ := env.do(t, http.MethodPatch, "/api/canvases/acme/tasks", guest, UpdateTaskRequest{
		CommentID: "whatever",
		Status:    models.TaskStatusCompleted,
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestTaskUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createCanvas(t, admin, "acme", models.CanvasKindWebsite, "https://acme.test")

	tests := []struct {
		name string
		req  UpdateTaskRequest
		want int
	}{
		{name: "bad status", req: UpdateTaskRequest{CommentID: "c1", Status: "done"}, want: http.StatusBadRequest},
		{name: "no address", req: UpdateTaskRequest{Status: models.TaskStatusActive}, want: http.StatusBadRequest},
		{name: "unknown comment", req: UpdateTaskRequest{CommentID: "nope", Status: models.TaskStatusActive}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := env.do(t, http.MethodPatch, "/api/canvases/acme/tasks", admin, tt.req, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
