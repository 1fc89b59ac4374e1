package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"partdocs/internal/model"
	"partdocs/internal/repository"
	"partdocs/internal/storage"
)

// UploadSuccessMessage is returned to clients after a committed upload.
const UploadSuccessMessage = "File uploaded successfully"

const (
	defaultDBTimeout      = 5 * time.Second
	defaultStorageTimeout = 30 * time.Second
	defaultLinkTTL        = time.Hour

	defaultPageLimit = 10
	maxPageLimit     = 100
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPartNumberRequired  = fmt.Errorf("%w: part_number is required", ErrInvalidRequest)
	ErrFileRequired        = fmt.Errorf("%w: file is required", ErrInvalidRequest)
	ErrNotFound            = errors.New("document not found")
	ErrDuplicatePartNumber = errors.New("part number already exists")
	ErrUpstreamStorage     = errors.New("object storage error")
	ErrDatabase            = errors.New("database error")
)

// UploadInput carries one multipart file and its part number.
type UploadInput struct {
	PartNumber  string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is the body returned after a successful upload.
type UploadResult struct {
	Message    string `json:"message"`
	PartNumber string `json:"part_number"`
}

// DownloadLink is the body returned by a part number lookup.
type DownloadLink struct {
	FileName    string `json:"file_name"`
	DownloadURL string `json:"download_url"`
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload reserves the part number, stores the bytes, then commits the record.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// Lookup resolves a part number into its file name and a signed download URL.
	Lookup(ctx context.Context, partNumber string) (*DownloadLink, error)

	// List returns committed documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)
}

// Options tunes per-call deadlines and the download link lifetime.
// Zero values fall back to defaults.
type Options struct {
	DBTimeout      time.Duration
	StorageTimeout time.Duration
	LinkTTL        time.Duration
	Logger         *zap.Logger
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	opts  Options
	log   *zap.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts Options) DocumentService {
	if opts.DBTimeout <= 0 {
		opts.DBTimeout = defaultDBTimeout
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = defaultStorageTimeout
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = defaultLinkTTL
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &documentService{store: store, repo: repo, opts: opts, log: log.Named("document_service")}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if strings.TrimSpace(in.PartNumber) == "" {
		return nil, ErrPartNumberRequired
	}
	if in.Body == nil || in.FileName == "" {
		return nil, ErrFileRequired
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storage.DocumentKey(in.PartNumber, in.FileName)
	doc := &model.Document{
		PartNumber:  in.PartNumber,
		FileName:    in.FileName,
		StorageKey:  key,
		ContentType: contentType,
		Size:        in.Size,
	}

	// Reserve first so a duplicate never reaches storage and overwrites the committed object.
	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	id, err := s.repo.Insert(dbCtx, doc)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicatePartNumber
		}
		return nil, fmt.Errorf("%w: reserve part number: %w", ErrDatabase, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	_, err = s.store.Put(storeCtx, key, in.Body, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
	})
	cancel()
	if err != nil {
		s.releaseReservation(ctx, id, in.PartNumber)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}

	dbCtx, cancel = context.WithTimeout(ctx, s.opts.DBTimeout)
	err = s.repo.MarkCommitted(dbCtx, id)
	cancel()
	if err != nil {
		// The row stays pending and the reconcile sweeper removes it with its object.
		return nil, fmt.Errorf("%w: commit document: %w", ErrDatabase, err)
	}

	s.log.Info("document_uploaded",
		zap.Int64("document_id", id),
		zap.String("part_number", in.PartNumber),
		zap.String("storage_key", key),
		zap.Int64("size", in.Size),
	)
	return &UploadResult{Message: UploadSuccessMessage, PartNumber: in.PartNumber}, nil
}

// releaseReservation frees a part number after a failed store. It outlives a
// cancelled request so a client disconnect does not leave the number blocked.
func (s *documentService) releaseReservation(ctx context.Context, id int64, partNumber string) {
	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DBTimeout)
	defer cancel()
	if err := s.repo.DeletePending(dbCtx, id); err != nil {
		s.log.Warn("release_reservation_failed",
			zap.Int64("document_id", id),
			zap.String("part_number", partNumber),
			zap.Error(err),
		)
	}
}

func (s *documentService) Lookup(ctx context.Context, partNumber string) (*DownloadLink, error) {
	if strings.TrimSpace(partNumber) == "" {
		return nil, ErrPartNumberRequired
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	doc, err := s.repo.FindByPartNumber(dbCtx, partNumber)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find document: %w", ErrDatabase, err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()
	link, err := s.store.PresignGet(storeCtx, doc.StorageKey, s.opts.LinkTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamStorage, err)
	}
	return &DownloadLink{FileName: doc.FileName, DownloadURL: link}, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	dbCtx, cancel := context.WithTimeout(ctx, s.opts.DBTimeout)
	defer cancel()
	res, err := s.repo.List(dbCtx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %w", ErrDatabase, err)
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}
