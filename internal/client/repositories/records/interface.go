package records

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/client/models"
)

// Repository describes raw table operations for versioned records. It never
// stamps envelope fields; that is the job of the repository service (for
// local writes) and the sync engine (for conflict-winning remote records).
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Upsert writes the record as given, replacing any existing row for the
	// same (collection, id) wholesale, envelope fields included.
	Upsert(ctx context.Context, collection string, r *models.Record) error

	// Get returns a record by collection and id, tombstones included.
	// Returns common.ErrorNotFound when the row is absent.
	Get(ctx context.Context, collection string, id string) (*models.Record, error)

	// GetAll returns all live records of a collection (tombstones excluded).
	GetAll(ctx context.Context, collection string) ([]models.Record, error)

	// GetAllIncludingDeleted returns every record of a collection, tombstones
	// included. Used by the full-restore protocol and diagnostics.
	GetAllIncludingDeleted(ctx context.Context, collection string) ([]models.Record, error)
}
