// Package reconcile removes uploads that were reserved but never committed.
//
// An upload inserts a pending row, writes the object, then commits the row.
// A crash or a failed commit between those steps leaves a pending row that
// blocks its part number and possibly an object nobody references. The
// sweeper deletes such rows once they are older than a grace period. The row
// delete stays uncommitted while the object is deleted, so a re-upload of the
// same part number waits on the unique key instead of racing the cleanup.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"partdocs/internal/repository"
	"partdocs/internal/storage"
)

const (
	defaultInterval   = 5 * time.Minute
	defaultStaleAfter = 15 * time.Minute
	defaultBatchSize  = 100
	defaultOpTimeout  = 30 * time.Second
)

// Options configures a Sweeper. Zero values fall back to defaults.
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	// OpTimeout bounds each list call and each row removal including its object delete.
	OpTimeout time.Duration
	Logger    *zap.Logger
	// Now is used by tests to pin the clock.
	Now func() time.Time
}

// Sweeper periodically deletes stale pending documents.
type Sweeper struct {
	repo  repository.DocumentRepository
	store storage.Storage
	opts  Options
	log   *zap.Logger

	removed prometheus.Counter
	errors  prometheus.Counter
}

// NewSweeper builds a sweeper and registers its counters on reg.
func NewSweeper(repo repository.DocumentRepository, store storage.Storage, opts Options, reg prometheus.Registerer) (*Sweeper, error) {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = defaultStaleAfter
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Sweeper{
		repo:  repo,
		store: store,
		opts:  opts,
		log:   log.Named("reconcile"),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partdocs_reconcile_removed_total",
			Help: "Pending documents removed by the reconcile sweeper.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partdocs_reconcile_errors_total",
			Help: "Failures while listing or removing pending documents.",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.removed, s.errors} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Run sweeps immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("reconcile_started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("stale_after", s.opts.StaleAfter),
		zap.Int("batch_size", s.opts.BatchSize),
	)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("reconcile_sweep_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.log.Info("reconcile_stopped")
			return
		case <-ticker.C:
		}
	}
}

// objectDeleteError marks a storage failure during RemovePending; the row
// delete is rolled back and retried on the next sweep.
type objectDeleteError struct{ err error }

func (e *objectDeleteError) Error() string { return "delete object: " + e.err.Error() }
func (e *objectDeleteError) Unwrap() error { return e.err }

// SweepOnce processes one batch of stale pending rows and returns how many
// were removed. Per-row failures are logged and counted but do not stop the batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("partdocs/reconcile").Start(ctx, "reconcile.sweep")
	defer span.End()

	cutoff := s.opts.Now().Add(-s.opts.StaleAfter)

	listCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
	docs, err := s.repo.ListStalePending(listCtx, cutoff, s.opts.BatchSize)
	cancel()
	if err != nil {
		s.errors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "list stale pending")
		return 0, err
	}

	removed := 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}

		opCtx, cancel := context.WithTimeout(ctx, s.opts.OpTimeout)
		err := s.repo.RemovePending(opCtx, doc.ID, func(ctx context.Context) error {
			if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
				return &objectDeleteError{err: err}
			}
			return nil
		})
		cancel()
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		var objErr *objectDeleteError
		if errors.As(err, &objErr) {
			s.errors.Inc()
			s.log.Warn("reconcile_delete_object_failed",
				zap.Int64("document_id", doc.ID),
				zap.String("storage_key", doc.StorageKey),
				zap.Error(objErr.err),
			)
			continue
		}
		if err != nil {
			s.errors.Inc()
			s.log.Warn("reconcile_delete_row_failed",
				zap.Int64("document_id", doc.ID),
				zap.String("part_number", doc.PartNumber),
				zap.Error(err),
			)
			continue
		}

		removed++
		s.removed.Inc()
		s.log.Info("reconcile_removed",
			zap.Int64("document_id", doc.ID),
			zap.String("part_number", doc.PartNumber),
			zap.Time("created_at", doc.CreatedAt),
		)
	}

	span.SetAttributes(
		attribute.Int("reconcile.candidates", len(docs)),
		attribute.Int("reconcile.removed", removed),
	)
	return removed, nil
}
