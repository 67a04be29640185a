// Package sync implements the offline-first synchronization engine: push of
// pending local writes, pull of server deltas, last-write-wins conflict
// resolution, and the full-restore protocol.
package sync

import "github.com/dmitrijs2005/possync/internal/client/models"

// Decision is the outcome of comparing a local and a remote record stamp.
type Decision int

const (
	// KeepLocal leaves local state untouched; a pending outbox entry for the
	// document survives to be retried on the next push.
	KeepLocal Decision = iota

	// ApplyRemote replaces the local record wholesale, envelope included,
	// and discards any pending outbox entry for the document.
	ApplyRemote
)

func (d Decision) String() string {
	if d == ApplyRemote {
		return "apply-remote"
	}
	return "keep-local"
}

// Resolve decides between a local record stamp (nil when the document is
// absent locally) and an incoming remote stamp. Version is the primary
// tiebreaker, wall-clock time the secondary one; equal version and equal or
// older remote time keeps local. No field-level merging takes place: the
// later write wins in full.
func Resolve(local *models.Stamp, remote models.Stamp) Decision {
	if local == nil {
		return ApplyRemote
	}
	if remote.Version > local.Version {
		return ApplyRemote
	}
	if remote.Version == local.Version && remote.UpdatedAt > local.UpdatedAt {
		return ApplyRemote
	}
	return KeepLocal
}
