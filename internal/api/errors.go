// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/pinpoint/internal/store"
)

// respondStoreError maps store errors onto the API error taxonomy.
//
// The two 409 cases carry distinct messages so the panel can tell a
// stale mutation ("only the latest comment...") apart from a comment
// that no longer exists in the thread.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrCanvasNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Canvas not found", nil)
	case errors.Is(err, store.ErrThreadNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Thread not found in the latest version", nil)
	case errors.Is(err, store.ErrStaleVersion):
		respondError(w, http.StatusConflict, "STALE_VERSION", "Only the latest version accepts annotations", nil)
	case errors.Is(err, store.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Task comment not found", nil)
	case errors.Is(err, store.ErrNoVersions):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Canvas has no versions", nil)
	case errors.Is(err, store.ErrCanvasExists):
		respondError(w, http.StatusConflict, "CONFLICT", "A canvas with this slug already exists", nil)
	case errors.Is(err, store.ErrNotLatestComment):
		respondError(w, http.StatusConflict, "CONFLICT", "Only the latest comment can be edited/deleted", nil)
	case errors.Is(err, store.ErrCommentNotInThread):
		respondError(w, http.StatusConflict, "CONFLICT", "Comment not found in thread", nil)
	case errors.Is(err, store.ErrAlreadyEdited):
		respondError(w, http.StatusConflict, "CONFLICT", "Comment has already been edited", nil)
	case errors.Is(err, store.ErrCommentDeleted):
		respondError(w, http.StatusConflict, "CONFLICT", "Comment is deleted", nil)
	case errors.Is(err, store.ErrNotAuthor):
		respondError(w, http.StatusForbidden, "FORBIDDEN", "Only the comment author may modify this comment", nil)
	case errors.Is(err, store.ErrInvalidPathKey):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed task path key", nil)
	default:
		respondError(w, http.StatusServiceUnavailable, "TRANSIENT", "Temporarily unable to persist, retry", err)
	}
}
