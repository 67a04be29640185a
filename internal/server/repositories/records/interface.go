// Package records stores the server's authoritative copy of every
// synchronized document.
package records

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/server/models"
)

// Repository is the server record store. Apply is the only write path used
// by sync traffic; the remaining methods back the admin surface.
type Repository interface {
	// Apply upserts one record under the last-write-wins rule and reports
	// whether the row changed. A losing record is a no-op, which is what
	// makes retried pushes idempotent.
	Apply(ctx context.Context, r *models.Record) (bool, error)

	// SelectUpdatedSince returns every record whose server receive time is
	// strictly after since, across all collections.
	SelectUpdatedSince(ctx context.Context, since int64) ([]models.Record, error)

	// DumpCollection returns all records of one collection, tombstones
	// included.
	DumpCollection(ctx context.Context, collection string) ([]models.Record, error)

	// DeleteCollection removes every record of one collection. Used by the
	// bulk loader in overwrite mode.
	DeleteCollection(ctx context.Context, collection string) error

	// CountAll returns the total number of stored records.
	CountAll(ctx context.Context) (int64, error)

	// Seeded reports whether the store has been seeded by a full restore or
	// bulk load since its last wipe.
	Seeded(ctx context.Context) (bool, error)

	// MarkSeeded records that the store now holds an authoritative dataset.
	MarkSeeded(ctx context.Context) error
}
