package outbox

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/client/models"
)

// Repository is the durable queue of pending deliveries. Entries are
// appended in the same transaction as the record write they mirror and
// enumerated in insertion order for push.
type Repository interface {
	// Append adds one entry to the tail of the queue.
	Append(ctx context.Context, e *models.OutboxEntry) error

	// All returns the whole queue in insertion order, seq populated.
	All(ctx context.Context) ([]models.OutboxEntry, error)

	// DeleteBySeq removes exactly the given entries. Push uses it after a
	// server ack so entries enqueued concurrently with the cycle survive.
	DeleteBySeq(ctx context.Context, seqs []int64) error

	// DeleteByDoc removes every pending entry for one document. Pull uses it
	// when a remote record supersedes the local pending write.
	DeleteByDoc(ctx context.Context, collection string, docID string) error

	// Count returns the number of pending entries.
	Count(ctx context.Context) (int, error)
}
