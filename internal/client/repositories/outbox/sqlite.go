package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/models"
	"github.com/dmitrijs2005/possync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts one entry at the queue tail. The payload record is stored
// as JSON so the push batch can be replayed byte-for-byte.
func (r *SQLiteRepository) Append(ctx context.Context, e *models.OutboxEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	query := `INSERT INTO outbox (collection, doc_id, op, payload, enqueued_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, e.Collection, e.DocID, e.Op, string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append outbox entry: %w", err)
	}
	return nil
}

// All returns the queue in insertion order.
func (r *SQLiteRepository) All(ctx context.Context) ([]models.OutboxEntry, error) {
	query := `SELECT seq, collection, doc_id, op, payload FROM outbox ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select outbox entries: %w", err)
	}
	defer rows.Close()

	var result []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		var payload string
		if err := rows.Scan(&e.Seq, &e.Collection, &e.DocID, &e.Op, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal outbox payload: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteBySeq removes exactly the given entries.
func (r *SQLiteRepository) DeleteBySeq(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seqs)), ",")
	args := make([]any, len(seqs))
	for i, s := range seqs {
		args[i] = s
	}

	query := `DELETE FROM outbox WHERE seq IN (` + placeholders + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete outbox entries: %w", err)
	}
	return nil
}

// DeleteByDoc removes every pending entry for one document.
func (r *SQLiteRepository) DeleteByDoc(ctx context.Context, collection string, docID string) error {
	query := `DELETE FROM outbox WHERE collection = ? AND doc_id = ?`
	if _, err := r.db.ExecContext(ctx, query, collection, docID); err != nil {
		return fmt.Errorf("failed to delete outbox entries for %s/%s: %w", collection, docID, err)
	}
	return nil
}

// Count returns the number of pending entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return n, nil
}
