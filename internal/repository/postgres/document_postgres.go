package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"partdocs/internal/model"
	"partdocs/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const documentColumns = `id, part_number, file_name, storage_key, content_type, size, status, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var (
		d      model.Document
		status string
	)
	err := row.Scan(
		&d.ID,
		&d.PartNumber,
		&d.FileName,
		&d.StorageKey,
		&d.ContentType,
		&d.Size,
		&status,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	d.Status = model.DocumentStatus(status)
	return d, err
}

// Insert reserves a part number with a pending row.
func (r *DocumentPostgres) Insert(ctx context.Context, doc *model.Document) (int64, error) {
	const q = `
		INSERT INTO documents (part_number, file_name, storage_key, content_type, size, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		doc.PartNumber,
		doc.FileName,
		doc.StorageKey,
		doc.ContentType,
		doc.Size,
		string(model.StatusPending),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// MarkCommitted flips a pending row to committed.
func (r *DocumentPostgres) MarkCommitted(ctx context.Context, id int64) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`
	res, err := r.db.ExecContext(ctx, q, id, string(model.StatusCommitted), string(model.StatusPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeletePending removes a row only while it is still pending. It returns
// repository.ErrNotFound when the row is gone or was committed meanwhile.
func (r *DocumentPostgres) DeletePending(ctx context.Context, id int64) error {
	const q = `DELETE FROM documents WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, q, id, string(model.StatusPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RemovePending deletes a pending row inside a transaction and commits only
// after cleanup succeeds.
func (r *DocumentPostgres) RemovePending(ctx context.Context, id int64, cleanup func(ctx context.Context) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `DELETE FROM documents WHERE id = $1 AND status = $2`
	res, err := tx.ExecContext(ctx, q, id, string(model.StatusPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	if err = cleanup(ctx); err != nil {
		return err
	}
	return tx.Commit()
}

// FindByPartNumber fetches the committed document for a part number.
func (r *DocumentPostgres) FindByPartNumber(ctx context.Context, partNumber string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE part_number = $1 AND status = $2
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, partNumber, string(model.StatusCommitted)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns committed documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents WHERE status = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, string(model.StatusCommitted)).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	items, err := r.query(ctx, qList, string(model.StatusCommitted), pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// ListStalePending returns pending rows created before olderThan, oldest first.
func (r *DocumentPostgres) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`
	return r.query(ctx, q, string(model.StatusPending), olderThan, limit)
}

func (r *DocumentPostgres) query(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
