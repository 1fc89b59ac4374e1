package repository

import (
	"context"
	"time"

	"partdocs/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
type DocumentRepository interface {
	// Insert reserves doc.PartNumber with a pending row and returns its ID.
	// It returns ErrConflict if the part number already exists in any state.
	Insert(ctx context.Context, doc *model.Document) (int64, error)

	// MarkCommitted flips a pending row to committed.
	// It returns ErrNotFound if no pending row with that ID exists.
	MarkCommitted(ctx context.Context, id int64) error

	// DeletePending removes a row only while it is still pending.
	// It returns ErrNotFound if the row is gone or already committed.
	DeletePending(ctx context.Context, id int64) error

	// RemovePending deletes a pending row and runs cleanup before the deletion
	// commits. The deleted row keeps its part number locked while cleanup runs,
	// so a concurrent Insert of the same part number waits for the outcome.
	// A cleanup error rolls the deletion back. It returns ErrNotFound if the row
	// is gone or already committed, in which case cleanup is not called.
	RemovePending(ctx context.Context, id int64, cleanup func(ctx context.Context) error) error

	// FindByPartNumber returns the committed document for a part number, or ErrNotFound.
	FindByPartNumber(ctx context.Context, partNumber string) (*model.Document, error)

	// List returns a page of committed documents and their total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// ListStalePending returns up to limit pending rows created before olderThan, oldest first.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Document, error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
