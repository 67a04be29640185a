// Package models defines client-side data models used by the possync client:
// the versioned record envelope, outbox entries, and the collection registry.
package models

import "encoding/json"

// Record is the versioned envelope persisted locally and synced with the
// server. The repository owns every envelope field; callers only ever supply
// the business payload.
type Record struct {
	// ID is a globally unique identifier for the record within its collection.
	ID string `json:"id"`

	// Version starts at 1 on first local write and is incremented by exactly
	// one on every subsequent local write. Remote data may replace it only
	// through the conflict resolver.
	Version int64 `json:"_version"`

	// UpdatedAt is the local wall-clock write time in unix milliseconds.
	UpdatedAt int64 `json:"_updatedAt"`

	// Deleted marks the record as a tombstone (kept in place of physical
	// deletion so removals replicate).
	Deleted bool `json:"_deleted"`

	// Payload carries the opaque business fields (item, transaction, ...).
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Stamp is the (version, updatedAt) pair the conflict resolver compares.
type Stamp struct {
	Version   int64
	UpdatedAt int64
}

// Stamp returns the record's resolver inputs.
func (r Record) Stamp() Stamp {
	return Stamp{Version: r.Version, UpdatedAt: r.UpdatedAt}
}

// OutboxEntry is one pending delivery obligation. It is created in the same
// transaction as the record write it mirrors and deleted only after the
// server acknowledges the push, or when a pull proves the server already
// holds an equal-or-newer version.
type OutboxEntry struct {
	// Seq is the local insertion-order key. Push deletes acknowledged
	// entries by seq so a concurrently enqueued entry for the same document
	// is never dropped.
	Seq int64 `json:"-"`

	Collection string `json:"collection"`
	DocID      string `json:"docId"`
	Op         string `json:"type"`
	Payload    Record `json:"payload"`
}

// OpUpsert is the only outbox operation; removals travel as upserts whose
// payload carries the tombstone flag.
const OpUpsert = "upsert"
