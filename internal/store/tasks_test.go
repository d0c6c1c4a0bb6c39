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

func seedTaskCanvas(t *testing.T, s *CanvasStore) (threadID, taskCommentID string) {
	t.Helper()
	ctx := context.Background()
	seedCanvas(t, s)

	thread, err := s.SaveThread(ctx, "acme-homepage", "https://acme.test/", models.Thread{
		Comments: []models.Comment{{
			AuthorEmail: "reviewer@acme.test",
			AuthorName:  "Reviewer",
			Message:     "Edited text: Welcome to Acme",
			Type:        models.CommentTypeTask,
			Ping:        models.Ping{X: 0.3, Y: 0.3, Width: 0.1, Height: 0.05},
		}},
	}, "")
	if err != nil {
		t.Fatalf("SaveThread() failed: %v", err)
	}

	// A plain comment thread that must not appear in the task list.
	if _, err := s.SaveThread(ctx, "acme-homepage", "https://acme.test/", models.Thread{
		Comments: []models.Comment{{AuthorEmail: "reviewer@acme.test", Message: "just a note"}},
	}, ""); err != nil {
		t.Fatalf("SaveThread() failed: %v", err)
	}

	return thread.ID, thread.Comments[0].ID
}

func TestTaskRowsListsOnlyLiveTasks(t *testing.T) {
	s := newTestStore(t)
	_, taskID := seedTaskCanvas(t, s)
	ctx := context.Background()

	rows, err := s.TaskRows(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("TaskRows() failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("TaskRows() = %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.CommentID != taskID {
		t.Errorf("row comment id = %q, want %q", row.CommentID, taskID)
	}
	if row.PathKey != "v#0/pl#0/th#0/c#0" {
		t.Errorf("row path key = %q", row.PathKey)
	}
	if row.RowKey != "version-1/page-1" {
		t.Errorf("row key = %q", row.RowKey)
	}
	if row.Status != models.TaskStatusActive {
		t.Errorf("row status = %q, want active default", row.Status)
	}
}

func TestUpdateTaskStatusByPathKey(t *testing.T) {
	s := newTestStore(t)
	seedTaskCanvas(t, s)
	ctx := context.Background()

	updated, err := s.UpdateTaskStatus(ctx, "acme-homepage", "v#0/pl#0/th#0/c#0", "", models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateTaskStatus() failed: %v", err)
	}
	if updated.TaskStatus != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", updated.TaskStatus)
	}

	rows, _ := s.TaskRows(ctx, "acme-homepage")
	if rows[0].Status != models.TaskStatusCompleted {
		t.Errorf("listed status = %q, want completed", rows[0].Status)
	}
}

func TestUpdateTaskStatusPathKeyErrors(t *testing.T) {
	s := newTestStore(t)
	seedTaskCanvas(t, s)
	ctx := context.Background()

	tests := []struct {
		name    string
		pathKey string
		wantErr error
	}{
		{name: "malformed key", pathKey: "version 0 / thread 0", wantErr: ErrInvalidPathKey},
		{name: "out of bounds version", pathKey: "v#9/pl#0/th#0/c#0", wantErr: ErrTaskNotFound},
		{name: "out of bounds comment", pathKey: "v#0/pl#0/th#0/c#7", wantErr: ErrTaskNotFound},
		{name: "addresses a non-task comment", pathKey: "v#0/pl#0/th#1/c#0", wantErr: ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpdateTaskStatus(ctx, "acme-homepage", tt.pathKey, "", models.TaskStatusCompleted)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateTaskStatus() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateTaskStatusCommentIDFallback(t *testing.T) {
	s := newTestStore(t)
	_, taskID := seedTaskCanvas(t, s)
	ctx := context.Background()

	updated, err := s.UpdateTaskStatus(ctx, "acme-homepage", "", taskID, models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateTaskStatus() by comment id failed: %v", err)
	}
	if updated.TaskStatus != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", updated.TaskStatus)
	}

	if _, err := s.UpdateTaskStatus(ctx, "acme-homepage", "", "ghost", models.TaskStatusActive); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("unknown comment id error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTaskStatusRejectsUnknownStatus(t *testing.T) {
	s := newTestStore(t)
	_, taskID := seedTaskCanvas(t, s)

	_, err := s.UpdateTaskStatus(context.Background(), "acme-homepage", "", taskID, "paused")
	if !errors.Is(err, ErrInvalidPathKey) {
		t.Errorf("UpdateTaskStatus() bad status error = %v, want ErrInvalidPathKey", err)
	}
}

func TestTombstonedTaskLeavesTaskList(t *testing.T) {
	s := newTestStore(t)
	threadID, taskID := seedTaskCanvas(t, s)
	ctx := context.Background()

	if _, err := s.DeleteComment(ctx, "acme-homepage", threadID, taskID, "reviewer@acme.test"); err != nil {
		t.Fatalf("DeleteComment() failed: %v", err)
	}

	rows, err := s.TaskRows(ctx, "acme-homepage")
	if err != nil {
		t.Fatalf("TaskRows() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("TaskRows() after delete = %d rows, want 0", len(rows))
	}
}
