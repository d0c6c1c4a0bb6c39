// Pinpoint - Collaborative Website and PDF Annotation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pinpoint

// Package store persists canvas documents in BadgerDB.
//
// A canvas is stored as one JSON document under its slug. Every mutation
// is a whole-document read-modify-write inside a single Badger
// transaction, so a mutation sees a consistent document and commits
// atomically. Concurrent writers to the same canvas are last-writer-wins
// at the comment-array level; edits and deletes additionally validate
// against the latest comment inside the transaction, which rejects the
// most damaging interleavings.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/pinpoint/internal/logging"
	"github.com/tomtom215/pinpoint/internal/metrics"
	"github.com/tomtom215/pinpoint/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	canvasKeyPrefix   = "canvas:"
	canvasIDKeyPrefix = "canvas_id:"
)

// Store errors. The API layer maps these onto the HTTP error taxonomy.
var (
	ErrCanvasNotFound     = errors.New("store: canvas not found")
	ErrCanvasExists       = errors.New("store: canvas slug already exists")
	ErrNoVersions         = errors.New("store: canvas has no versions")
	ErrThreadNotFound     = errors.New("store: thread not found in latest version")
	ErrStaleVersion       = errors.New("store: only the latest version accepts annotations")
	ErrCommentNotInThread = errors.New("store: comment not found in thread")
	ErrNotLatestComment   = errors.New("store: only the latest comment can be modified")
	ErrAlreadyEdited      = errors.New("store: comment was already edited once")
	ErrCommentDeleted     = errors.New("store: comment is deleted")
	ErrNotAuthor          = errors.New("store: only the comment author may do this")
	ErrTaskNotFound       = errors.New("store: task comment not found")
	ErrInvalidPathKey     = errors.New("store: malformed task path key")
)

// CanvasStore is a Badger-backed canvas repository.
type CanvasStore struct {
	db *badger.DB

	now   func() time.Time
	newID func() string
}

// NewCanvasStore creates a store on an open Badger database.
func NewCanvasStore(db *badger.DB) *CanvasStore {
	return &CanvasStore{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Open opens (or creates) a Badger database at path with logging routed
// through the shared logger.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return db, nil
}

// OpenInMemory opens an ephemeral database, used by tests.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return db, nil
}

// CreateCanvas persists a new canvas. The caller supplies Slug,
// AdminEmail, Kind, TargetURL, RoomID and the seeded first version; the
// store stamps identity and timestamps.
func (s *CanvasStore) CreateCanvas(ctx context.Context, canvas *models.Canvas) error {
	if canvas.Slug == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidPathKey)
	}

	canvas.ID = s.newID()
	now := s.now()
	canvas.CreatedAt = now
	canvas.UpdatedAt = now

	data, err := json.Marshal(canvas)
	if err != nil {
		return fmt.Errorf("marshal canvas: %w", err)
	}

	start := time.Now()
	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(canvasKeyPrefix + canvas.Slug)
		if _, err := txn.Get(key); err == nil {
			return ErrCanvasExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check canvas: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set canvas: %w", err)
		}

		idKey := []byte(canvasIDKeyPrefix + canvas.ID)
		if err := txn.Set(idKey, []byte(canvas.Slug)); err != nil {
			return fmt.Errorf("set id mapping: %w", err)
		}
		return nil
	})
	metrics.RecordStoreCommit("create", time.Since(start), err)
	return err
}

// GetCanvas retrieves a canvas by slug.
func (s *CanvasStore) GetCanvas(ctx context.Context, slug string) (*models.Canvas, error) {
	var canvas models.Canvas

	err := s.db.View(func(txn *badger.Txn) error {
		return readCanvas(txn, slug, &canvas)
	})
	if err != nil {
		return nil, err
	}
	return &canvas, nil
}

// ListCanvases returns every stored canvas, ordered by slug. Intended for
// small admin listings, not pagination-scale data.
func (s *CanvasStore) ListCanvases(ctx context.Context) ([]*models.Canvas, error) {
	var canvases []*models.Canvas

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(canvasKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var canvas models.Canvas
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &canvas)
			})
			if err != nil {
				return fmt.Errorf("unmarshal canvas: %w", err)
			}
			canvases = append(canvases, &canvas)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return canvases, nil
}

// AppendVersion appends a fresh version to the canvas. Page link URLs are
// carried forward with empty thread lists; older versions become
// read-only snapshots. Returns the new version.
func (s *CanvasStore) AppendVersion(ctx context.Context, slug string) (*models.Version, error) {
	var created models.Version

	err := s.update(slug, func(canvas *models.Canvas) error {
		created = models.Version{
			ID:        s.newID(),
			CreatedAt: s.now(),
		}

		if latest := canvas.LatestVersion(); latest != nil {
			created.PageLinks = make([]models.PageLink, len(latest.PageLinks))
			for i, pl := range latest.PageLinks {
				created.PageLinks[i] = models.PageLink{URL: pl.URL}
			}
		}

		canvas.Versions = append(canvas.Versions, created)

		// The room id ends in "/#<versionID>" and tracks the latest
		// version, so realtime clients rebind on their next join.
		if idx := strings.LastIndex(canvas.RoomID, "/#"); idx >= 0 {
			canvas.RoomID = canvas.RoomID[:idx+2] + created.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// AddGuest appends an email to the canvas guest list, ignoring duplicates.
func (s *CanvasStore) AddGuest(ctx context.Context, slug, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: empty guest email", ErrInvalidPathKey)
	}

	return s.update(slug, func(canvas *models.Canvas) error {
		if canvas.HasGuest(email) {
			return nil
		}
		canvas.Guests = append(canvas.Guests, email)
		return nil
	})
}

// update runs fn against the decoded canvas and writes the result back,
// all within one transaction.
func (s *CanvasStore) update(slug string, fn func(*models.Canvas) error) error {
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		var canvas models.Canvas
		if err := readCanvas(txn, slug, &canvas); err != nil {
			return err
		}

		if err := fn(&canvas); err != nil {
			return err
		}
		canvas.UpdatedAt = s.now()

		data, err := json.Marshal(&canvas)
		if err != nil {
			return fmt.Errorf("marshal canvas: %w", err)
		}
		return txn.Set([]byte(canvasKeyPrefix+slug), data)
	})
	metrics.RecordStoreCommit("update", time.Since(start), err)
	return err
}

func readCanvas(txn *badger.Txn, slug string, dst *models.Canvas) error {
	item, err := txn.Get([]byte(canvasKeyPrefix + slug))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrCanvasNotFound
	}
	if err != nil {
		return fmt.Errorf("get canvas: %w", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Trace().Msgf("badger: "+strings.TrimSpace(format), args...)
}
