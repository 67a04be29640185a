// Package repomanager vends repository implementations bound to a database
// handle, so services can run the same repositories on *sql.DB or on an open
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/server/repositories/devices"
	"github.com/dmitrijs2005/possync/internal/server/repositories/records"
)

type RepositoryManager interface {
	Records(db dbx.DBTX) records.Repository
	Devices(db dbx.DBTX) devices.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
