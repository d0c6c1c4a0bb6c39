// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/pinpoint/internal/models"
)

// SaveThread appends a thread to the latest version of the canvas,
// creating the page link for pageURL if it does not exist yet. Thread and
// comment identity is stamped server-side; client-supplied ids are
// discarded. Returns the stamped thread.
//
// Older versions are never written. A non-empty versionID asserts which
// version the client was viewing when it drew the box; if that version
// has been superseded inside this transaction's view, the write fails
// with ErrStaleVersion instead of silently landing on the latest one.
func (s *CanvasStore) SaveThread(ctx context.Context, slug, pageURL string, thread models.Thread, versionID string) (*models.Thread, error) {
	if len(thread.Comments) == 0 {
		return nil, fmt.Errorf("%w: thread needs an initial comment", ErrInvalidPathKey)
	}

	var saved models.Thread

	err := s.update(slug, func(canvas *models.Canvas) error {
		latest := canvas.LatestVersion()
		if latest == nil {
			return ErrNoVersions
		}
		if versionID != "" && versionID != latest.ID {
			return ErrStaleVersion
		}

		now := s.now()
		thread.ID = s.newID()
		for i := range thread.Comments {
			thread.Comments[i].ID = s.newID()
			thread.Comments[i].CreatedAt = now
			thread.Comments[i].UpdatedAt = now
			thread.Comments[i].Edited = false
			thread.Comments[i].Deleted = false
			if thread.Comments[i].Type == "" {
				thread.Comments[i].Type = models.CommentTypeComment
			}
			if thread.Comments[i].Type == models.CommentTypeTask && thread.Comments[i].TaskStatus == "" {
				thread.Comments[i].TaskStatus = models.TaskStatusActive
			}
		}

		link := findPageLink(latest, pageURL)
		if link == nil {
			latest.PageLinks = append(latest.PageLinks, models.PageLink{URL: pageURL})
			link = &latest.PageLinks[len(latest.PageLinks)-1]
		}
		link.Threads = append(link.Threads, thread)

		saved = thread
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// AddComment appends a reply to a thread in the latest version.
func (s *CanvasStore) AddComment(ctx context.Context, slug, threadID string, comment models.Comment) (*models.Comment, error) {
	var saved models.Comment

	err := s.update(slug, func(canvas *models.Canvas) error {
		thread, err := findThread(canvas, threadID)
		if err != nil {
			return err
		}

		now := s.now()
		comment.ID = s.newID()
		comment.CreatedAt = now
		comment.UpdatedAt = now
		comment.Edited = false
		comment.Deleted = false
		if comment.Type == "" {
			comment.Type = models.CommentTypeComment
		}
		if comment.Type == models.CommentTypeTask && comment.TaskStatus == "" {
			comment.TaskStatus = models.TaskStatusActive
		}

		thread.Comments = append(thread.Comments, comment)
		saved = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// EditComment rewrites the message of a comment. Only the latest comment
// of the thread may be edited, only by its author, and only once.
func (s *CanvasStore) EditComment(ctx context.Context, slug, threadID, commentID, newMessage, actorEmail string) (*models.Comment, error) {
	var edited models.Comment

	err := s.update(slug, func(canvas *models.Canvas) error {
		thread, err := findThread(canvas, threadID)
		if err != nil {
			return err
		}

		comment, err := latestCommentByID(thread, commentID)
		if err != nil {
			return err
		}
		if comment.Deleted {
			return ErrCommentDeleted
		}
		if comment.AuthorEmail != actorEmail {
			return ErrNotAuthor
		}
		if comment.Edited {
			return ErrAlreadyEdited
		}

		comment.Message = newMessage
		comment.Edited = true
		comment.UpdatedAt = s.now()
		edited = *comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &edited, nil
}

// DeleteComment tombstones a comment: the slot stays in the thread but
// its message becomes the deletion marker and its ping leaves the
// surface. Only the latest comment may be deleted, and only by its
// original author.
func (s *CanvasStore) DeleteComment(ctx context.Context, slug, threadID, commentID, actorEmail string) (*models.Comment, error) {
	var deleted models.Comment

	err := s.update(slug, func(canvas *models.Canvas) error {
		thread, err := findThread(canvas, threadID)
		if err != nil {
			return err
		}

		comment, err := latestCommentByID(thread, commentID)
		if err != nil {
			return err
		}
		if comment.Deleted {
			return ErrCommentDeleted
		}
		if comment.AuthorEmail != actorEmail {
			return ErrNotAuthor
		}

		comment.Tombstone(s.now())
		deleted = *comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// findPageLink returns the page link with the given URL, or nil.
func findPageLink(version *models.Version, url string) *models.PageLink {
	for i := range version.PageLinks {
		if version.PageLinks[i].URL == url {
			return &version.PageLinks[i]
		}
	}
	return nil
}

// findThread locates a thread by id within the latest version only.
// A thread that exists only in a superseded version yields
// ErrStaleVersion so callers can tell "stale" apart from "never existed".
func findThread(canvas *models.Canvas, threadID string) (*models.Thread, error) {
	latest := canvas.LatestVersion()
	if latest == nil {
		return nil, ErrNoVersions
	}

	for i := range latest.PageLinks {
		threads := latest.PageLinks[i].Threads
		for j := range threads {
			if threads[j].ID == threadID {
				return &threads[j], nil
			}
		}
	}

	for v := range canvas.Versions[:len(canvas.Versions)-1] {
		for _, link := range canvas.Versions[v].PageLinks {
			for _, thread := range link.Threads {
				if thread.ID == threadID {
					return nil, ErrStaleVersion
				}
			}
		}
	}
	return nil, ErrThreadNotFound
}

// latestCommentByID resolves commentID against the thread tail.
// Distinguishes "not the latest" from "not in this thread at all" so the
// API can surface precise conflict messages.
func latestCommentByID(thread *models.Thread, commentID string) (*models.Comment, error) {
	latest := thread.LatestComment()
	if latest == nil {
		return nil, ErrCommentNotInThread
	}
	if latest.ID == commentID {
		return latest, nil
	}

	for i := range thread.Comments {
		if thread.Comments[i].ID == commentID {
			return nil, ErrNotLatestComment
		}
	}
	return nil, ErrCommentNotInThread
}
