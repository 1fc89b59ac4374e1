package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"partdocs/internal/model"
	"partdocs/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

var _ repository.DocumentRepository = (*MockDocumentRepository)(nil)

func (m *MockDocumentRepository) Insert(ctx context.Context, doc *model.Document) (int64, error) {
	args := m.Called(ctx, doc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) MarkCommitted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) DeletePending(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// RemovePending runs cleanup when the configured error is nil, mirroring a
// deletion that is committed after cleanup succeeds.
func (m *MockDocumentRepository) RemovePending(ctx context.Context, id int64, cleanup func(ctx context.Context) error) error {
	args := m.Called(ctx, id)
	if err := args.Error(0); err != nil {
		return err
	}
	return cleanup(ctx)
}

func (m *MockDocumentRepository) FindByPartNumber(ctx context.Context, partNumber string) (*model.Document, error) {
	args := m.Called(ctx, partNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Document, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}
