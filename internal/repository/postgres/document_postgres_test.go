package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partdocs/internal/model"
	"partdocs/internal/repository"
)

var documentRowColumns = []string{
	"id", "part_number", "file_name", "storage_key", "content_type", "size", "status", "created_at", "updated_at",
}

func newRepo(t *testing.T) (*DocumentPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentPostgres(db), mock
}

func TestDocumentPostgres_Insert(t *testing.T) {
	ctx := context.Background()
	doc := &model.Document{
		PartNumber:  "PN-100",
		FileName:    "spec.pdf",
		StorageKey:  "documents/PN-100/spec.pdf",
		ContentType: "application/pdf",
		Size:        11,
	}

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("INSERT INTO documents").
			WithArgs(doc.PartNumber, doc.FileName, doc.StorageKey, doc.ContentType, doc.Size, "pending").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		id, err := repo.Insert(ctx, doc)

		assert.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to conflict", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("INSERT INTO documents").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_documents_part_number"})

		_, err := repo.Insert(ctx, doc)

		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("other error passes through", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("INSERT INTO documents").WillReturnError(errors.New("conn reset"))

		_, err := repo.Insert(ctx, doc)

		assert.EqualError(t, err, "conn reset")
		assert.NotErrorIs(t, err, repository.ErrConflict)
	})
}

func TestDocumentPostgres_MarkCommitted(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs(int64(7), "committed", "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkCommitted(ctx, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no pending row", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec("UPDATE documents SET status").
			WithArgs(int64(7), "committed", "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkCommitted(ctx, 7), repository.ErrNotFound)
	})
}

func TestDocumentPostgres_DeletePending(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = (.+) AND status = ").
			WithArgs(int64(9), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeletePending(ctx, 9))
	})

	t.Run("already committed or gone", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE id = (.+) AND status = ").
			WithArgs(int64(10), "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.DeletePending(ctx, 10), repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByPartNumber(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		rows := sqlmock.NewRows(documentRowColumns).
			AddRow(1, "PN-100", "spec.pdf", "documents/PN-100/spec.pdf", "application/pdf", 11, "committed", now, now)

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE part_number = (.+) AND status = ").
			WithArgs("PN-100", "committed").
			WillReturnRows(rows)

		doc, err := repo.FindByPartNumber(ctx, "PN-100")

		require.NoError(t, err)
		assert.Equal(t, int64(1), doc.ID)
		assert.Equal(t, "spec.pdf", doc.FileName)
		assert.Equal(t, "documents/PN-100/spec.pdf", doc.StorageKey)
		assert.Equal(t, model.StatusCommitted, doc.Status)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE part_number = ").
			WithArgs("missing", "committed").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByPartNumber(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, doc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_List(t *testing.T) {
	repo, mock := newRepo(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE status = ").
		WithArgs("committed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow(1, "PN-100", "spec.pdf", "documents/PN-100/spec.pdf", "application/pdf", 11, "committed", now, now)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE status = (.+) ORDER BY").
		WithArgs("committed", 10, 0).
		WillReturnRows(rows)

	res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, "PN-100", res.Items[0].PartNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListStalePending(t *testing.T) {
	repo, mock := newRepo(t)
	cutoff := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	old := cutoff.Add(-time.Hour)
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow(3, "PN-7", "a.bin", "documents/PN-7/a.bin", "application/octet-stream", 0, "pending", old, old).
		AddRow(4, "PN-8", "b.bin", "documents/PN-8/b.bin", "application/octet-stream", 0, "pending", old, old)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE status = (.+) AND created_at < ").
		WithArgs("pending", cutoff, 50).
		WillReturnRows(rows)

	docs, err := repo.ListStalePending(context.Background(), cutoff, 50)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.StatusPending, docs[0].Status)
	assert.Equal(t, "documents/PN-8/b.bin", docs[1].StorageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_RemovePending(t *testing.T) {
	ctx := context.Background()
	const deleteQuery = "DELETE FROM documents WHERE id = (.+) AND status = "

	t.Run("commits after cleanup", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteQuery).
			WithArgs(int64(1), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var cleaned bool
		err := repo.RemovePending(ctx, 1, func(context.Context) error {
			cleaned = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, cleaned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cleanup failure rolls back the delete", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteQuery).
			WithArgs(int64(2), "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := repo.RemovePending(ctx, 2, func(context.Context) error {
			return errors.New("s3 down")
		})

		assert.EqualError(t, err, "s3 down")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("committed row is left alone", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteQuery).
			WithArgs(int64(3), "pending").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.RemovePending(ctx, 3, func(context.Context) error {
			t.Fatal("cleanup must not run for a committed row")
			return nil
		})

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteQuery).WillReturnError(errors.New("lock timeout"))
		mock.ExpectRollback()

		err := repo.RemovePending(ctx, 4, func(context.Context) error { return nil })

		assert.EqualError(t, err, "lock timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin().WillReturnError(errors.New("conn refused"))

		err := repo.RemovePending(ctx, 5, func(context.Context) error { return nil })

		assert.EqualError(t, err, "conn refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
