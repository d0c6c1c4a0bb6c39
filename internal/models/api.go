// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure.
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "CONFLICT",
//	    "message": "Only the latest comment can be deleted"
//	  },
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a structured error payload.
//
// Codes used by the API surface:
//   - VALIDATION_ERROR: invalid input (400)
//   - UNAUTHORIZED: missing or invalid credentials (401)
//   - FORBIDDEN: authenticated but not permitted (403)
//   - NOT_FOUND: canvas, thread or comment does not exist (404)
//   - CONFLICT: mutation targets a non-latest comment (409)
//   - STALE_VERSION: mutation targets a superseded version (409)
//   - TRANSIENT: temporarily unable to persist, retry (503)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
