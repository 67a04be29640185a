// Package locking provides the mutual-exclusion primitive guarding a sync
// cycle. At most one push+pull cycle may run at a time against a local
// store; periodic and connectivity triggers skip when the lock is busy,
// explicit calls block for it.
//
// Two implementations are provided: an in-process locker for the common
// single-process deployment, and a lease persisted in the shared metadata
// table for several processes sharing one database file.
package locking

import "context"

// Locker serializes sync cycles.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done.
	Acquire(ctx context.Context) error

	// TryAcquire obtains the lock only if it is immediately available.
	TryAcquire(ctx context.Context) (bool, error)

	// Release gives the lock up. Releasing a lock that is not held is an
	// error.
	Release(ctx context.Context) error
}
