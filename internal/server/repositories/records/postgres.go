package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Apply(ctx context.Context, rec *models.Record) (bool, error) {
	query :=
		`INSERT INTO records (collection, doc_id, version, updated_at, deleted, payload, server_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (collection, doc_id) DO UPDATE SET
		   version = EXCLUDED.version,
		   updated_at = EXCLUDED.updated_at,
		   deleted = EXCLUDED.deleted,
		   payload = EXCLUDED.payload,
		   server_seen_at = EXCLUDED.server_seen_at
		 WHERE EXCLUDED.version > records.version
		    OR (EXCLUDED.version = records.version AND EXCLUDED.updated_at > records.updated_at);`

	res, err := r.db.ExecContext(ctx, query,
		rec.Collection, rec.ID, rec.Version, rec.UpdatedAt, rec.Deleted, []byte(rec.Payload), rec.ServerSeenAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, since int64) ([]models.Record, error) {
	query :=
		`SELECT collection, doc_id, version, updated_at, deleted, payload, server_seen_at
		 FROM records
		 WHERE server_seen_at > $1
		 ORDER BY server_seen_at, collection, doc_id;`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *PostgresRepository) DumpCollection(ctx context.Context, collection string) ([]models.Record, error) {
	query :=
		`SELECT collection, doc_id, version, updated_at, deleted, payload, server_seen_at
		 FROM records
		 WHERE collection = $1
		 ORDER BY doc_id;`

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *PostgresRepository) DeleteCollection(ctx context.Context, collection string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = $1;`, collection)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM records;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Seeded(ctx context.Context) (bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = 'seeded';`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return v == "true", nil
}

func (r *PostgresRepository) MarkSeeded(ctx context.Context) error {
	query :=
		`INSERT INTO sync_state (key, value) VALUES ('seeded', 'true')
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]models.Record, error) {
	result := []models.Record{}
	for rows.Next() {
		var rec models.Record
		var payload []byte
		if err := rows.Scan(&rec.Collection, &rec.ID, &rec.Version, &rec.UpdatedAt, &rec.Deleted, &payload, &rec.ServerSeenAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Payload = payload
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
