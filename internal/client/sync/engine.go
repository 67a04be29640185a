package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/client"
	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/possync/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/possync/internal/client/repositories/records"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/locking"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/robfig/cron/v3"
)

// Metadata keys owned by the engine. Domain modules never touch these.
const (
	keyLastPull       = "last_pull_timestamp"
	keyLastSuccess    = "last_success_at"
	keyLastSyncPrefix = "last_sync_"
)

// Engine status values.
const (
	StatusIdle    = "idle"
	StatusSyncing = "syncing"
)

// Engine orchestrates one push+pull cycle at a time: drain the outbox to the
// server, fetch and apply server deltas under the last-write-wins rule, and
// reseed the server when it asks for a full restore. All cross-cycle state
// lives in the metadata table; a failed cycle leaves the outbox and the pull
// watermark in their last-known-good state.
type Engine struct {
	db       *sql.DB
	client   client.Client
	registry *models.Registry
	locker   locking.Locker
	log      logging.Logger
	opts     Options
	now      func() time.Time
	newMeta  func(db dbx.DBTX) metadata.Repository

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	status string
}

// Options configure the engine's background triggers.
type Options struct {
	// CronSpec schedules the periodic trigger (robfig/cron syntax, e.g.
	// "@every 1m"). Empty disables it.
	CronSpec string

	// PingInterval is how often the connectivity watcher probes the server.
	// Zero disables the watcher.
	PingInterval time.Duration

	// PingTimeout bounds a single probe. Defaults to 3s.
	PingTimeout time.Duration
}

// NewEngine returns an Engine over the given local database and remote
// client. Nothing runs until Start or an explicit Sync call.
func NewEngine(db *sql.DB, c client.Client, registry *models.Registry, locker locking.Locker, log logging.Logger, opts Options) *Engine {
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 3 * time.Second
	}
	return &Engine{
		db:       db,
		client:   c,
		registry: registry,
		locker:   locker,
		log:      log.With("component", "sync-engine"),
		opts:     opts,
		now:      time.Now,
		newMeta:  func(db dbx.DBTX) metadata.Repository { return metadata.NewSQLiteRepository(db) },
		status:   StatusIdle,
	}
}

// Sync runs one push+pull cycle, blocking until the sync lock is available.
// Domain modules call it after a local write burst.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.locker.Acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = e.locker.Release(ctx) }()

	return e.cycle(ctx)
}

// SyncIfIdle runs one cycle only if no other cycle is in flight, reporting
// whether it ran. Periodic and connectivity triggers use it: skipping is
// safe because a later cycle covers the same ground.
func (e *Engine) SyncIfIdle(ctx context.Context) (bool, error) {
	ok, err := e.locker.TryAcquire(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() { _ = e.locker.Release(ctx) }()

	return true, e.cycle(ctx)
}

// Status returns "idle" or "syncing".
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSuccessfulSync returns the wall-clock time of the last cycle that
// completed without error, or zero time if none has yet.
func (e *Engine) LastSuccessfulSync(ctx context.Context) (time.Time, error) {
	ms, err := e.newMeta(e.db).GetInt64(ctx, keyLastSuccess, 0)
	if err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

func (e *Engine) setStatus(s string) {
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}

func (e *Engine) cycle(ctx context.Context) error {
	e.setStatus(StatusSyncing)
	defer e.setStatus(StatusIdle)

	started := e.now()

	if err := e.push(ctx); err != nil {
		e.log.Warn(ctx, "push failed, skipping pull", "error", err)
		return err
	}

	if err := e.pull(ctx, true); err != nil {
		e.log.Warn(ctx, "pull failed", "error", err)
		return err
	}

	if err := e.newMeta(e.db).SetInt64(ctx, keyLastSuccess, e.now().UnixMilli()); err != nil {
		return err
	}

	e.log.Info(ctx, "sync cycle complete", "took", e.now().Sub(started).String())
	return nil
}

// push drains the current outbox snapshot to the server. On ack it deletes
// exactly the entries it sent, by seq, so entries enqueued concurrently with
// the cycle are left for the next push.
func (e *Engine) push(ctx context.Context) error {
	obRepo := outbox.NewSQLiteRepository(e.db)

	entries, err := obRepo.All(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		e.log.Debug(ctx, "outbox empty, skipping push")
		return nil
	}

	if err := e.client.Push(ctx, entries); err != nil {
		return fmt.Errorf("%w: %v", common.ErrPushFailed, err)
	}

	seqs := make([]int64, len(entries))
	for i, entry := range entries {
		seqs[i] = entry.Seq
	}
	if err := obRepo.DeleteBySeq(ctx, seqs); err != nil {
		return err
	}

	e.log.Info(ctx, "push complete", "entries", len(entries))
	return nil
}

// pull fetches deltas since the stored watermark and applies them one
// collection at a time. A collection that fails to apply is logged and
// skipped; the watermark still advances so the cycle keeps making forward
// progress, at the cost of that collection re-appearing in later deltas.
func (e *Engine) pull(ctx context.Context, allowRestore bool) error {
	metaRepo := e.newMeta(e.db)

	since, err := metaRepo.GetInt64(ctx, keyLastPull, 0)
	if err != nil {
		return err
	}

	res, err := e.client.Pull(ctx, since)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrPullFailed, err)
	}

	if res.NeedsRestore {
		if !allowRestore {
			return fmt.Errorf("%w: server still asks for restore after reseed", common.ErrRestoreFailed)
		}
		return e.fullRestore(ctx)
	}

	for _, name := range e.registry.Names() {
		recs := res.Deltas[name]
		if len(recs) == 0 {
			continue
		}
		if err := e.applyCollection(ctx, name, recs); err != nil {
			applyErr := &CollectionApplyError{Collection: name, Err: err}
			e.log.Error(ctx, "delta apply failed", "collection", name, "records", len(recs), "error", applyErr)
			continue
		}
		// The per-collection marker is diagnostic only; losing it must not
		// stop the watermark from advancing.
		if err := metaRepo.SetInt64(ctx, keyLastSyncPrefix+name, res.ServerTime); err != nil {
			e.log.Warn(ctx, "collection sync marker not persisted", "collection", name, "error", err)
		}
	}

	for name := range res.Deltas {
		if !e.registry.Known(name) {
			e.log.Warn(ctx, "server sent deltas for unknown collection", "collection", name)
		}
	}

	if err := metaRepo.SetInt64(ctx, keyLastPull, res.ServerTime); err != nil {
		return err
	}

	e.log.Info(ctx, "pull complete", "serverTime", res.ServerTime)
	return nil
}

// applyCollection applies one collection's delta batch in a single
// transaction. Each record is resolved independently: a winning remote
// record replaces the local one wholesale and discards the document's
// pending outbox entries; a losing one changes nothing, leaving the local
// pending write to be retried.
func (e *Engine) applyCollection(ctx context.Context, collection string, recs []models.Record) error {
	return dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		recRepo := records.NewSQLiteRepository(tx)
		obRepo := outbox.NewSQLiteRepository(tx)

		for i := range recs {
			remote := recs[i]
			if remote.ID == "" || remote.Version < 1 {
				return fmt.Errorf("malformed record at index %d (id=%q version=%d)", i, remote.ID, remote.Version)
			}

			var localStamp *models.Stamp
			local, err := recRepo.Get(ctx, collection, remote.ID)
			if err != nil && !errors.Is(err, common.ErrorNotFound) {
				return err
			}
			if local != nil {
				s := local.Stamp()
				localStamp = &s
			}

			decision := Resolve(localStamp, remote.Stamp())
			e.log.Debug(ctx, "resolved delta", "collection", collection, "docId", remote.ID, "decision", decision.String())

			if decision != ApplyRemote {
				continue
			}

			if err := recRepo.Upsert(ctx, collection, &remote); err != nil {
				return err
			}
			// The local pending write, if any, lost the conflict and is moot.
			if err := obRepo.DeleteByDoc(ctx, collection, remote.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// fullRestore reseeds an empty server with the complete local dataset,
// tombstones included, then clears the watermark and immediately runs a
// follow-up cycle so the client converges on the fresh baseline. Local data
// is never deleted, so a failed upload costs nothing but a retry.
func (e *Engine) fullRestore(ctx context.Context) error {
	e.log.Info(ctx, "server requested full restore")

	recRepo := records.NewSQLiteRepository(e.db)

	dump := make(map[string][]models.Record, len(e.registry.Names()))
	for _, name := range e.registry.Names() {
		recs, err := recRepo.GetAllIncludingDeleted(ctx, name)
		if err != nil {
			return fmt.Errorf("%w: reading %q: %v", common.ErrRestoreFailed, name, err)
		}
		dump[name] = recs
	}

	if err := e.client.Restore(ctx, dump); err != nil {
		return fmt.Errorf("%w: %v", common.ErrRestoreFailed, err)
	}

	if err := e.newMeta(e.db).Delete(ctx, keyLastPull); err != nil {
		return err
	}

	e.log.Info(ctx, "full restore complete, running follow-up sync")

	if err := e.push(ctx); err != nil {
		return err
	}
	return e.pull(ctx, false)
}
