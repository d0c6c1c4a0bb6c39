// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/tomtom215/pinpoint/internal/models"
)

// pathKeyPattern addresses a comment positionally across the whole
// document tree: version / page link / thread / comment indexes.
var pathKeyPattern = regexp.MustCompile(`^v#(\d+)/pl#(\d+)/th#(\d+)/c#(\d+)$`)

// PathKey builds the positional address for a comment.
func PathKey(versionIdx, pageIdx, threadIdx, commentIdx int) string {
	return fmt.Sprintf("v#%d/pl#%d/th#%d/c#%d", versionIdx, pageIdx, threadIdx, commentIdx)
}

// TaskRows flattens every live task comment in the document into list
// rows. Tombstoned comments and plain comments are skipped. Rows cover
// all versions so completed work on older versions stays auditable.
func (s *CanvasStore) TaskRows(ctx context.Context, slug string) ([]models.TaskRow, error) {
	canvas, err := s.GetCanvas(ctx, slug)
	if err != nil {
		return nil, err
	}

	var rows []models.TaskRow
	for vi := range canvas.Versions {
		version := &canvas.Versions[vi]
		for pi := range version.PageLinks {
			link := &version.PageLinks[pi]
			for ti := range link.Threads {
				thread := &link.Threads[ti]
				for ci := range thread.Comments {
					comment := &thread.Comments[ci]
					if comment.Type != models.CommentTypeTask || comment.Deleted {
						continue
					}
					rows = append(rows, models.TaskRow{
						RowKey:      fmt.Sprintf("version-%d/page-%d", vi+1, pi+1),
						PathKey:     PathKey(vi, pi, ti, ci),
						ThreadID:    thread.ID,
						CommentID:   comment.ID,
						PageURL:     link.URL,
						Viewport:    thread.Viewport,
						Message:     comment.Message,
						AuthorEmail: comment.AuthorEmail,
						AuthorName:  comment.AuthorName,
						Status:      comment.TaskStatus,
						CreatedAt:   comment.CreatedAt,
					})
				}
			}
		}
	}
	return rows, nil
}

// UpdateTaskStatus flips a task between active and completed. The path
// key is the preferred address; when it is empty or no longer resolves
// after concurrent edits, the comment id is resolved by scanning the
// tree. Out-of-range path indexes without a comment id and unknown ids
// report ErrTaskNotFound.
func (s *CanvasStore) UpdateTaskStatus(ctx context.Context, slug, pathKey, commentID, status string) (*models.Comment, error) {
	if status != models.TaskStatusActive && status != models.TaskStatusCompleted {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidPathKey, status)
	}

	var updated models.Comment

	err := s.update(slug, func(canvas *models.Canvas) error {
		var comment *models.Comment
		var err error

		if pathKey != "" {
			comment, err = resolvePathKey(canvas, pathKey)
			if err != nil && commentID != "" {
				comment, err = resolveCommentID(canvas, commentID)
			}
		} else {
			comment, err = resolveCommentID(canvas, commentID)
		}
		if err != nil {
			return err
		}

		if comment.Type != models.CommentTypeTask || comment.Deleted {
			return ErrTaskNotFound
		}

		comment.TaskStatus = status
		comment.UpdatedAt = s.now()
		updated = *comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// resolvePathKey walks the positional address, bounds-checked at every
// level.
func resolvePathKey(canvas *models.Canvas, pathKey string) (*models.Comment, error) {
	m := pathKeyPattern.FindStringSubmatch(pathKey)
	if m == nil {
		return nil, ErrInvalidPathKey
	}

	// Regex guarantees digits; ranges are checked below.
	vi, _ := strconv.Atoi(m[1])
	pi, _ := strconv.Atoi(m[2])
	ti, _ := strconv.Atoi(m[3])
	ci, _ := strconv.Atoi(m[4])

	if vi >= len(canvas.Versions) {
		return nil, ErrTaskNotFound
	}
	version := &canvas.Versions[vi]
	if pi >= len(version.PageLinks) {
		return nil, ErrTaskNotFound
	}
	link := &version.PageLinks[pi]
	if ti >= len(link.Threads) {
		return nil, ErrTaskNotFound
	}
	thread := &link.Threads[ti]
	if ci >= len(thread.Comments) {
		return nil, ErrTaskNotFound
	}
	return &thread.Comments[ci], nil
}

// resolveCommentID scans the whole tree for a comment id. Fallback for
// clients that predate path-key addressing.
func resolveCommentID(canvas *models.Canvas, commentID string) (*models.Comment, error) {
	if commentID == "" {
		return nil, ErrTaskNotFound
	}

	for vi := range canvas.Versions {
		version := &canvas.Versions[vi]
		for pi := range version.PageLinks {
			link := &version.PageLinks[pi]
			for ti := range link.Threads {
				thread := &link.Threads[ti]
				for ci := range thread.Comments {
					if thread.Comments[ci].ID == commentID {
						return &thread.Comments[ci], nil
					}
				}
			}
		}
	}
	return nil, ErrTaskNotFound
}
