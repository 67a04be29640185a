package records

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/possync/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestApply_WinnerRowsAffected1(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`INSERT INTO records .* ON CONFLICT \(collection, doc_id\) DO UPDATE SET .* WHERE EXCLUDED\.version > records\.version`)

	mock.ExpectExec(q.String()).
		WithArgs("items", "sku-1", int64(3), int64(500), false, []byte(`{"name":"latte"}`), int64(900)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.Apply(context.Background(), &models.Record{
		Collection:   "items",
		ID:           "sku-1",
		Version:      3,
		UpdatedAt:    500,
		Payload:      []byte(`{"name":"latte"}`),
		ServerSeenAt: 900,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatalf("expected applied=true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApply_LoserRowsAffected0(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`INSERT INTO records .* ON CONFLICT`)

	mock.ExpectExec(q.String()).
		WithArgs("items", "sku-1", int64(1), int64(100), false, []byte(nil), int64(900)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.Apply(context.Background(), &models.Record{
		Collection: "items", ID: "sku-1", Version: 1, UpdatedAt: 100, ServerSeenAt: 900,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatalf("stale record must not be applied")
	}
}

func TestSelectUpdatedSince(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"collection", "doc_id", "version", "updated_at", "deleted", "payload", "server_seen_at"}).
		AddRow("items", "sku-1", int64(2), int64(200), false, []byte(`{}`), int64(300)).
		AddRow("customers", "c1", int64(1), int64(250), true, []byte(`{}`), int64(350))

	mock.ExpectQuery(`SELECT collection, doc_id, .* FROM records\s+WHERE server_seen_at > \$1`).
		WithArgs(int64(100)).
		WillReturnRows(rows)

	got, err := repo.SelectUpdatedSince(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[1].Collection != "customers" || !got[1].Deleted {
		t.Fatalf("unexpected record: %+v", got[1])
	}
}

func TestSeeded_NoRowMeansUnseeded(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM sync_state WHERE key = 'seeded'`).
		WillReturnError(sql.ErrNoRows)

	seeded, err := repo.Seeded(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded {
		t.Fatalf("missing row must read as unseeded")
	}
}

func TestMarkSeeded(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sync_state \(key, value\) VALUES \('seeded', 'true'\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkSeeded(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
