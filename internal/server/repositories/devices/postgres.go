package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	query :=
		`INSERT INTO devices (name, secret_hash)
		 VALUES ($1, $2)
		 RETURNING id, created_at;`

	err := r.db.QueryRowContext(ctx, query, d.Name, d.SecretHash).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDeviceExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return d, nil
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Device, error) {
	query :=
		`SELECT id, name, secret_hash, created_at FROM devices
		 WHERE name = $1;`

	d := &models.Device{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&d.ID, &d.Name, &d.SecretHash, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return d, nil
}
