// Package models defines the server-side storage and wire types.
package models

import "encoding/json"

// Record is the server's view of one synchronized document. The envelope
// fields mirror the client wire format; Collection and ServerSeenAt are
// storage-side and never cross the wire inside the record body.
type Record struct {
	Collection   string          `json:"-"`
	ID           string          `json:"id"`
	Version      int64           `json:"_version"`
	UpdatedAt    int64           `json:"_updatedAt"`
	Deleted      bool            `json:"_deleted"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ServerSeenAt int64           `json:"-"`
}

// Supersedes reports whether r wins over existing under the last-write-wins
// rule: a higher version always wins, an equal version falls back to the
// updatedAt timestamp.
func (r *Record) Supersedes(existing *Record) bool {
	if existing == nil {
		return true
	}
	if r.Version != existing.Version {
		return r.Version > existing.Version
	}
	return r.UpdatedAt > existing.UpdatedAt
}
