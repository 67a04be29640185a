// Package client provides the connection from the POS client to the sync
// server: the Client transport interface, its HTTP implementation, and
// local database bootstrap.
package client

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/client/models"
)

// Client is the remote endpoint the sync engine talks to.
type Client interface {
	// Ping probes server reachability. Used by the connectivity watcher.
	Ping(ctx context.Context) error

	// Login exchanges the device credentials for a bearer token.
	Login(ctx context.Context, device string, secret string) error

	// Push delivers one outbox batch. Any non-2xx response is an error and
	// the caller must leave the outbox untouched.
	Push(ctx context.Context, entries []models.OutboxEntry) error

	// Pull fetches server deltas issued after the given watermark.
	Pull(ctx context.Context, since int64) (*PullResult, error)

	// Restore reseeds an empty server with the full local dataset.
	Restore(ctx context.Context, collections map[string][]models.Record) error

	Close() error
}

// PullResult is the outcome of one delta request.
type PullResult struct {
	// NeedsRestore is set when the server reports it has no authoritative
	// data and expects the client to reseed it.
	NeedsRestore bool

	// Deltas maps collection name to the records changed since the
	// requested watermark.
	Deltas map[string][]models.Record

	// ServerTime is the server-issued watermark to persist after a
	// successful apply.
	ServerTime int64
}
