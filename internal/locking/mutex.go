package locking

import (
	"context"
	"errors"
)

// MutexLocker is the single-process Locker. A one-slot channel keeps
// Acquire cancellable by context, which a plain sync.Mutex cannot do.
type MutexLocker struct {
	sem chan struct{}
}

// NewMutexLocker returns an unlocked MutexLocker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1)}
}

func (m *MutexLocker) Acquire(ctx context.Context) error {
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MutexLocker) TryAcquire(ctx context.Context) (bool, error) {
	select {
	case m.sem <- struct{}{}:
		return true, nil
	default:
		return false, nil
	}
}

func (m *MutexLocker) Release(ctx context.Context) error {
	select {
	case <-m.sem:
		return nil
	default:
		return errors.New("release of unheld lock")
	}
}
