package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx), so record writes can share a transaction with outbox appends.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert writes the record by (collection, id). On conflict every column is
// replaced, envelope fields included.
func (r *SQLiteRepository) Upsert(ctx context.Context, collection string, rec *models.Record) error {
	query := `INSERT INTO records (collection, id, version, updated_at, deleted, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET version = excluded.version,
				updated_at = excluded.updated_at,
				deleted = excluded.deleted,
				payload = excluded.payload
	`
	_, err := r.db.ExecContext(ctx, query,
		collection, rec.ID, rec.Version, rec.UpdatedAt, boolToInt(rec.Deleted), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// Get returns one record by primary key, tombstones included.
func (r *SQLiteRepository) Get(ctx context.Context, collection string, id string) (*models.Record, error) {
	query := `SELECT id, version, updated_at, deleted, payload FROM records WHERE collection = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, collection, id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

// GetAll lists live records of a collection.
func (r *SQLiteRepository) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	return r.list(ctx, collection, false)
}

// GetAllIncludingDeleted lists every record of a collection, tombstones too.
func (r *SQLiteRepository) GetAllIncludingDeleted(ctx context.Context, collection string) ([]models.Record, error) {
	return r.list(ctx, collection, true)
}

func (r *SQLiteRepository) list(ctx context.Context, collection string, includeDeleted bool) ([]models.Record, error) {
	query := `SELECT id, version, updated_at, deleted, payload FROM records WHERE collection = ?`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRecord(scan func(dest ...any) error) (*models.Record, error) {
	var rec models.Record
	var deleted int
	var payload sql.NullString
	if err := scan(&rec.ID, &rec.Version, &rec.UpdatedAt, &deleted, &payload); err != nil {
		return nil, err
	}
	rec.Deleted = deleted != 0
	if payload.Valid {
		rec.Payload = []byte(payload.String)
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
