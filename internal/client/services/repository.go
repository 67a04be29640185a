// Package services contains the client-side application services: the
// versioned Repository every business write goes through, and the engine's
// view of it.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/possync/internal/client/repositories/records"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/google/uuid"
)

// Repository wraps the local store so that version stamping and outbox
// enqueueing can never be skipped: a record write and its outbox entry
// commit in one transaction or not at all. Domain modules own only the
// payload; every envelope field is stamped here.
type Repository struct {
	db       *sql.DB
	registry *models.Registry
	now      func() time.Time
}

// NewRepository returns a Repository over db accepting writes for the
// collections in registry.
func NewRepository(db *sql.DB, registry *models.Registry) *Repository {
	return &Repository{db: db, registry: registry, now: time.Now}
}

// Upsert stamps and writes one record. The version becomes existing+1 (1 for
// a first write), updatedAt becomes the local wall clock. An empty id is
// assigned a fresh UUID. Returns the stamped record.
func (r *Repository) Upsert(ctx context.Context, collection string, id string, payload json.RawMessage) (*models.Record, error) {
	if !r.registry.Known(collection) {
		return nil, fmt.Errorf("upsert into %q: %w", collection, common.ErrUnknownCollection)
	}
	if id == "" {
		id = uuid.NewString()
	}

	rec := &models.Record{ID: id, Payload: payload}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return r.stampAndWrite(ctx, tx, collection, rec, false)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns a live record, or common.ErrorNotFound when the id is absent
// or tombstoned.
func (r *Repository) Get(ctx context.Context, collection string, id string) (*models.Record, error) {
	if !r.registry.Known(collection) {
		return nil, fmt.Errorf("get from %q: %w", collection, common.ErrUnknownCollection)
	}

	rec, err := records.NewSQLiteRepository(r.db).Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted {
		return nil, common.ErrorNotFound
	}
	return rec, nil
}

// GetAll returns the live records of a collection.
func (r *Repository) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	if !r.registry.Known(collection) {
		return nil, fmt.Errorf("list %q: %w", collection, common.ErrUnknownCollection)
	}
	return records.NewSQLiteRepository(r.db).GetAll(ctx, collection)
}

// GetAllIncludingDeleted returns every record of a collection, tombstones
// included, for diagnostics and the full-restore protocol.
func (r *Repository) GetAllIncludingDeleted(ctx context.Context, collection string) ([]models.Record, error) {
	if !r.registry.Known(collection) {
		return nil, fmt.Errorf("list %q: %w", collection, common.ErrUnknownCollection)
	}
	return records.NewSQLiteRepository(r.db).GetAllIncludingDeleted(ctx, collection)
}

// Remove writes a tombstone over the existing record, keeping its payload so
// the deletion replicates like any other write. Removing an id that does not
// exist locally is a no-op.
func (r *Repository) Remove(ctx context.Context, collection string, id string) error {
	if !r.registry.Known(collection) {
		return fmt.Errorf("remove from %q: %w", collection, common.ErrUnknownCollection)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		existing, err := records.NewSQLiteRepository(tx).Get(ctx, collection, id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		rec := &models.Record{ID: id, Payload: existing.Payload}
		return r.stampAndWrite(ctx, tx, collection, rec, true)
	})
}

// stampAndWrite computes the next version, stamps the envelope, and writes
// the record plus its outbox entry on the given transaction.
func (r *Repository) stampAndWrite(ctx context.Context, tx dbx.DBTX, collection string, rec *models.Record, deleted bool) error {
	recRepo := records.NewSQLiteRepository(tx)

	var version int64 = 1
	existing, err := recRepo.Get(ctx, collection, rec.ID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if existing != nil {
		version = existing.Version + 1
	}

	rec.Version = version
	rec.UpdatedAt = r.now().UnixMilli()
	rec.Deleted = deleted

	if err := recRepo.Upsert(ctx, collection, rec); err != nil {
		return err
	}

	return outbox.NewSQLiteRepository(tx).Append(ctx, &models.OutboxEntry{
		Collection: collection,
		DocID:      rec.ID,
		Op:         models.OpUpsert,
		Payload:    *rec,
	})
}
