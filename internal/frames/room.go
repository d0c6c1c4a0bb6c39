// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package frames implements the host side of the frame protocol. A
// controller owns one embedded frame (website proxy or PDF renderer),
// sends it control messages, and turns its events into domain actions.
package frames

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/pinpoint/internal/models"
)

// DeriveRoomID builds the realtime room identifier for a review
// session. Everyone reviewing the same target version lands in the same
// room: "{adminEmail}/{host-or-target}/#{versionID}".
//
// Website canvases key on the target's hostname so path and query
// variations of the same site share a room. PDF canvases key on the
// target as given.
func DeriveRoomID(adminEmail, kind, target, versionID string) string {
	key := strings.TrimSpace(target)
	if kind == models.CanvasKindWebsite {
		if u, err := url.Parse(key); err == nil && u.Host != "" {
			key = u.Host
		}
	}
	return fmt.Sprintf("%s/%s/#%s", strings.ToLower(strings.TrimSpace(adminEmail)), key, versionID)
}
