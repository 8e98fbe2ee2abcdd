package service

import (
	"context"
	"sync"
	"time"

	"github.com/docvault/docnode/internal/filestore"
	"github.com/docvault/docnode/internal/metrics"
	"github.com/docvault/docnode/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActionLogScanner is the read/repair side of the action log consumed by the
// sweeper. *store.Store satisfies it.
type ActionLogScanner interface {
	FindStaleUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]model.ActionRecord, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID) error
	PruneProcessed(ctx context.Context, olderThan time.Time, limit int) (int64, error)
	CountUnprocessed(ctx context.Context) (int64, error)
}

// SweepStats summarizes a single sweep pass.
type SweepStats struct {
	Scanned     int
	Compensated int
	Failed      int
	Pruned      int64
}

// SweeperService repairs the damage interrupted section operations leave
// behind. On every tick it scans the action log for unprocessed records older
// than the grace period and compensates each one:
//
//	CREATE, uncommitted: the file may exist with no row pointing at it,
//	remove it if present.
//	CREATE, committed:   the operation finished, nothing to do.
//	DELETE, committed:   the row is gone but the file remains, remove it.
//	DELETE, uncommitted: the row still exists and references the file,
//	leave it alone.
//
// Records whose compensation fails stay unprocessed and are retried on the
// next pass. Every step is idempotent, so a crash mid-sweep is harmless.
type SweeperService struct {
	actions   ActionLogScanner
	files     filestore.Store
	config    SweeperConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
	sweepLock sync.Mutex
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// SweeperConfig carries the sweep cadence and staleness thresholds.
type SweeperConfig struct {
	// Interval between automatic sweep passes.
	Interval time.Duration
	// GracePeriod an action record must age before it is considered
	// abandoned. Must comfortably exceed the longest expected upload.
	GracePeriod time.Duration
	// BatchLimit caps how many records a single query fetches. The sweep
	// loops until a fetch comes back short, so the backlog still drains
	// fully in one pass.
	BatchLimit int
	// Retention is how long processed records are kept for audit before
	// being pruned. Zero disables pruning.
	Retention time.Duration
}

// NewSweeperService creates a sweeper. Call Start to begin the background
// loop, or drive Sweep directly.
func NewSweeperService(
	actions ActionLogScanner,
	files filestore.Store,
	config SweeperConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SweeperService {
	return &SweeperService{
		actions:  actions,
		files:    files,
		config:   config,
		metrics:  m,
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start launches the periodic sweep loop.
func (s *SweeperService) Start() {
	s.logger.Info("Starting reconciliation sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("grace_period", s.config.GracePeriod),
		zap.Int("batch_limit", s.config.BatchLimit))

	go s.sweepLoop()
}

// Stop terminates the background loop and waits for it to exit. A sweep in
// flight runs to completion.
func (s *SweeperService) Stop() {
	close(s.stopChan)
	<-s.doneChan
	s.logger.Info("Reconciliation sweeper stopped")
}

func (s *SweeperService) sweepLoop() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(context.Background()); err != nil {
				s.logger.Error("Sweep pass failed", zap.Error(err))
			}
		case <-s.stopChan:
			return
		}
	}
}

// Sweep runs one full reconciliation pass, draining the stale backlog in
// batches. At most one sweep runs at a time; a call that finds another sweep
// in progress returns immediately without doing anything.
func (s *SweeperService) Sweep(ctx context.Context) (SweepStats, error) {
	if !s.sweepLock.TryLock() {
		s.metrics.SweepSkippedTotal.Inc()
		s.logger.Debug("Sweep already in progress, skipping")
		return SweepStats{}, nil
	}
	defer s.sweepLock.Unlock()

	startTime := time.Now()
	s.metrics.SweepRunsTotal.Inc()

	var stats SweepStats
	cutoff := time.Now().UTC().Add(-s.config.GracePeriod)

	for {
		batch, err := s.actions.FindStaleUnprocessed(ctx, cutoff, s.config.BatchLimit)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}
		stats.Scanned += len(batch)

		// Only successfully compensated records are marked processed.
		// Failures stay behind and are retried on the next pass.
		processed := make([]uuid.UUID, 0, len(batch))
		for i := range batch {
			record := &batch[i]
			if err := s.compensate(ctx, record); err != nil {
				stats.Failed++
				s.metrics.CompensationsTotal.WithLabelValues(string(record.ActionType), "failure").Inc()
				s.logger.Error("Compensation failed, will retry",
					zap.String("action_id", record.ID.String()),
					zap.String("action_type", string(record.ActionType)),
					zap.String("storage_location", record.StorageLocation),
					zap.Error(err))
				continue
			}
			stats.Compensated++
			s.metrics.CompensationsTotal.WithLabelValues(string(record.ActionType), "success").Inc()
			processed = append(processed, record.ID)
		}

		if len(processed) > 0 {
			if err := s.actions.MarkProcessed(ctx, processed); err != nil {
				// The compensations themselves are idempotent, so redoing
				// them next pass is safe.
				return stats, err
			}
			s.metrics.ActionsProcessedTotal.Add(float64(len(processed)))
		}

		if len(batch) < s.config.BatchLimit {
			break
		}
		// A full batch of failures would refetch the same records forever;
		// stop and let the next pass retry them.
		if len(processed) == 0 {
			break
		}
	}

	if s.config.Retention > 0 {
		pruned, err := s.actions.PruneProcessed(ctx, time.Now().UTC().Add(-s.config.Retention), s.config.BatchLimit)
		if err != nil {
			s.logger.Error("Failed to prune processed action records", zap.Error(err))
		} else if pruned > 0 {
			stats.Pruned = pruned
			s.metrics.ActionsPrunedTotal.Add(float64(pruned))
		}
	}

	if backlog, err := s.actions.CountUnprocessed(ctx); err == nil {
		s.metrics.SweepBacklog.Set(float64(backlog))
	}

	s.metrics.SweepDuration.Observe(time.Since(startTime).Seconds())
	if stats.Scanned > 0 {
		s.logger.Info("Sweep pass complete",
			zap.Int("scanned", stats.Scanned),
			zap.Int("compensated", stats.Compensated),
			zap.Int("failed", stats.Failed),
			zap.Int64("pruned", stats.Pruned),
			zap.Duration("duration", time.Since(startTime)))
	}
	return stats, nil
}

// compensate undoes the file-store half of an abandoned operation. Absence of
// the target file is success: the failure may have happened before the file
// was written, or a previous partially-completed sweep already removed it.
func (s *SweeperService) compensate(ctx context.Context, record *model.ActionRecord) error {
	if !record.NeedsCompensation() {
		return nil
	}

	switch record.ActionType {
	case model.ActionTypeCreate:
		removed, err := s.files.DeleteIfPresent(ctx, record.StorageLocation)
		if err != nil {
			return err
		}
		if removed {
			s.logger.Info("Removed orphaned file",
				zap.String("action_id", record.ID.String()),
				zap.String("storage_location", record.StorageLocation))
		}
		return nil
	case model.ActionTypeDelete:
		if err := s.files.Delete(ctx, record.StorageLocation); err != nil {
			return err
		}
		s.logger.Info("Removed deleted section file",
			zap.String("action_id", record.ID.String()),
			zap.String("storage_location", record.StorageLocation))
		return nil
	}
	return nil
}
