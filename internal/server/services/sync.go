// Package services contains server-side business logic: the sync ingest and
// delta surface, and device authentication.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/server/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
)

// errDryRun forces a transaction rollback after a successful dry-run load.
var errDryRun = errors.New("dry run")

// watermarkLag is how far the watermark handed out with a delta set trails
// the server clock. ApplyBatch stamps server_seen_at at service entry,
// before its transaction commits, so a pull running concurrently can read
// past a record whose stamp predates the pull's own clock reading. The
// trailing watermark keeps such records inside the next pull's window; it
// must exceed the longest push transaction. Clients apply re-delivered
// records under last-write-wins, so the overlap changes nothing twice.
const watermarkLag = 5 * time.Second

// DeltaSet is the outcome of one delta query.
type DeltaSet struct {
	NeedsRestore bool
	Deltas       map[string][]models.Record
	ServerTime   int64
}

// SyncService owns the authoritative record store: push ingest, delta
// queries, full restore, and the admin dump/load surface.
type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewSyncService(db *sql.DB, m repomanager.RepositoryManager) *SyncService {
	return &SyncService{db: db, repomanager: m, now: time.Now}
}

// ApplyBatch ingests one pushed outbox batch in a single transaction. Each
// record is applied under the last-write-wins rule and stamped with the
// server receive time, so a retried push changes nothing the second time.
func (s *SyncService) ApplyBatch(ctx context.Context, recs []models.Record) error {
	seen := s.now().UnixMilli()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		for i := range recs {
			rec := recs[i]
			if rec.Collection == "" || rec.ID == "" || rec.Version < 1 {
				return fmt.Errorf("malformed record (collection=%q id=%q version=%d)", rec.Collection, rec.ID, rec.Version)
			}
			rec.ServerSeenAt = seen
			if _, err := repo.Apply(ctx, &rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Deltas returns every record received after since, grouped by collection,
// plus the watermark to use on the next pull. The watermark trails the
// server clock by watermarkLag so a push committing while this query runs
// is still delivered next time. When the store is empty and has never been
// seeded it reports NeedsRestore instead.
func (s *SyncService) Deltas(ctx context.Context, since int64) (*DeltaSet, error) {
	repo := s.repomanager.Records(s.db)

	count, err := repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		seeded, err := repo.Seeded(ctx)
		if err != nil {
			return nil, err
		}
		if !seeded {
			return &DeltaSet{NeedsRestore: true}, nil
		}
	}

	recs, err := repo.SelectUpdatedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	deltas := map[string][]models.Record{}
	for _, rec := range recs {
		deltas[rec.Collection] = append(deltas[rec.Collection], rec)
	}

	return &DeltaSet{Deltas: deltas, ServerTime: s.now().Add(-watermarkLag).UnixMilli()}, nil
}

// Restore reseeds the store from a full client dataset and marks it seeded.
// Records are applied under the same LWW rule as pushes, so a restore racing
// a concurrent push can never roll a document back.
func (s *SyncService) Restore(ctx context.Context, collections map[string][]models.Record) error {
	seen := s.now().UnixMilli()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		for collection, recs := range collections {
			for i := range recs {
				rec := recs[i]
				rec.Collection = collection
				rec.ServerSeenAt = seen
				if rec.ID == "" || rec.Version < 1 {
					return fmt.Errorf("malformed record in %q (id=%q version=%d)", collection, rec.ID, rec.Version)
				}
				if _, err := repo.Apply(ctx, &rec); err != nil {
					return err
				}
			}
		}

		return repo.MarkSeeded(ctx)
	})
}

// Dump returns the full contents of one collection, tombstones included.
func (s *SyncService) Dump(ctx context.Context, collection string) ([]models.Record, error) {
	return s.repomanager.Records(s.db).DumpCollection(ctx, collection)
}

// BulkLoad writes a batch of records into one collection for backup and
// migration tooling. In overwrite mode the collection is wiped first; in
// append mode records merge under LWW. With dryRun the whole load runs and
// is then rolled back, reporting what would have been written.
func (s *SyncService) BulkLoad(ctx context.Context, collection string, recs []models.Record, overwrite bool, dryRun bool) (int, error) {
	seen := s.now().UnixMilli()
	loaded := 0

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		if overwrite {
			if err := repo.DeleteCollection(ctx, collection); err != nil {
				return err
			}
		}

		for i := range recs {
			rec := recs[i]
			rec.Collection = collection
			rec.ServerSeenAt = seen
			if rec.ID == "" || rec.Version < 1 {
				return fmt.Errorf("malformed record at index %d (id=%q version=%d)", i, rec.ID, rec.Version)
			}
			applied, err := repo.Apply(ctx, &rec)
			if err != nil {
				return err
			}
			if applied {
				loaded++
			}
		}

		if err := repo.MarkSeeded(ctx); err != nil {
			return err
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return 0, err
	}

	return loaded, nil
}
