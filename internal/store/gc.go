// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/pinpoint/internal/logging"
)

// GCService periodically reclaims Badger value-log space. It implements
// suture.Service and is supervised in the data layer.
type GCService struct {
	db       *badger.DB
	interval time.Duration
}

// NewGCService creates a GC service. Interval defaults to 10 minutes.
func NewGCService(db *badger.DB, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{db: db, interval: interval}
}

// Serve implements suture.Service.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when there was nothing
			// to reclaim; that is the common case, not a failure.
			err := g.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("badger value log GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (g *GCService) String() string {
	return "store-gc"
}
