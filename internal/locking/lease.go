package locking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/google/uuid"
)

// LeaseLocker serializes sync cycles across processes sharing one SQLite
// file. The lease lives in the metadata table as "<owner>|<expires_ms>";
// an expired lease is up for grabs, so a crashed holder cannot wedge sync
// forever. Check-and-set runs inside a transaction, which SQLite serializes
// against other writers.
//
// While the lease is held a heartbeat goroutine pushes the expiry forward,
// so a cycle that outlives the ttl keeps the lease. The ttl only bounds how
// long a crashed holder blocks its peers.
type LeaseLocker struct {
	db    *sql.DB
	key   string
	owner string
	ttl   time.Duration
	poll  time.Duration
	renew time.Duration
	now   func() time.Time

	mu        sync.Mutex
	held      bool
	stopRenew context.CancelFunc
	renewDone chan struct{}
}

// NewLeaseLocker returns a LeaseLocker for the given metadata key. ttl is
// the takeover delay after a holder crashes without releasing.
func NewLeaseLocker(db *sql.DB, key string, ttl time.Duration) *LeaseLocker {
	return &LeaseLocker{
		db:    db,
		key:   key,
		owner: uuid.NewString(),
		ttl:   ttl,
		poll:  250 * time.Millisecond,
		renew: ttl / 3,
		now:   time.Now,
	}
}

func (l *LeaseLocker) Acquire(ctx context.Context) error {
	for {
		ok, err := l.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-time.After(l.poll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *LeaseLocker) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return false, nil
	}

	acquired := false
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		raw, err := repo.Get(ctx, l.key)
		if err != nil {
			return err
		}

		if raw != nil {
			owner, expires, err := parseLease(string(raw))
			if err != nil {
				return err
			}
			if owner != l.owner && expires > l.now().UnixMilli() {
				return nil // held by a live peer
			}
		}

		if err := repo.Set(ctx, l.key, []byte(l.encode())); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lease acquire: %w", err)
	}
	if acquired {
		l.held = true
		l.startHeartbeat()
	}
	return acquired, nil
}

func (l *LeaseLocker) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return errors.New("release of unheld lock")
	}
	l.stopRenew()
	<-l.renewDone
	l.held = false

	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		raw, err := repo.Get(ctx, l.key)
		if err != nil {
			return err
		}
		if raw == nil {
			return nil
		}
		owner, _, err := parseLease(string(raw))
		if err != nil {
			return err
		}
		if owner != l.owner {
			return nil // expired and taken over; nothing of ours left
		}
		return repo.Delete(ctx, l.key)
	})
	if err != nil {
		return fmt.Errorf("lease release: %w", err)
	}
	return nil
}

// startHeartbeat keeps the lease fresh until Release. Callers hold l.mu.
func (l *LeaseLocker) startHeartbeat() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.stopRenew = cancel
	l.renewDone = done

	go func() {
		defer close(done)
		t := time.NewTicker(l.renew)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := l.extend(ctx); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// extend pushes the lease expiry forward. It fails if the lease has expired
// and been taken over by a peer in the meantime.
func (l *LeaseLocker) extend(ctx context.Context) error {
	err := dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		raw, err := repo.Get(ctx, l.key)
		if err != nil {
			return err
		}
		if raw == nil {
			return errors.New("lease vanished")
		}
		owner, _, err := parseLease(string(raw))
		if err != nil {
			return err
		}
		if owner != l.owner {
			return errors.New("lease taken over")
		}
		return repo.Set(ctx, l.key, []byte(l.encode()))
	})
	if err != nil {
		return fmt.Errorf("lease extend: %w", err)
	}
	return nil
}

func (l *LeaseLocker) encode() string {
	return l.owner + "|" + strconv.FormatInt(l.now().Add(l.ttl).UnixMilli(), 10)
}

func parseLease(s string) (owner string, expires int64, err error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed lease %q", s)
	}
	expires, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed lease expiry %q: %w", parts[1], err)
	}
	return parts[0], expires, nil
}
