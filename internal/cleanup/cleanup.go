// Package cleanup runs the periodic retention sweep: archiving and
// deleting terminal jobs past their retention window, expiring stale
// profile cache rows, and mirroring the cost ledger to ClickHouse.
package cleanup

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/archive"
	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/ledger"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// Worker owns the scheduled retention sweep.
type Worker struct {
	store    *store.Store
	archiver *archive.Archiver
	exporter *ledger.Exporter
	cfg      config.Retention
	log      *zap.Logger

	cron           *cron.Cron
	lastExportedID int64
}

func New(st *store.Store, archiver *archive.Archiver, exporter *ledger.Exporter, cfg config.Retention, log *zap.Logger) *Worker {
	return &Worker{
		store:    st,
		archiver: archiver,
		exporter: exporter,
		cfg:      cfg,
		log:      log,
		cron:     cron.New(),
	}
}

// Run registers the retention sweep on the configured schedule and
// blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.cfg.CleanupCron, func() {
		w.sweep(ctx)
	})
	if err != nil {
		return err
	}
	w.cron.Start()
	defer w.cron.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (w *Worker) sweep(ctx context.Context) {
	w.sweepTerminalJobs(ctx)
	if w.cfg.CacheSweepEnabled {
		w.sweepExpiredCache(ctx)
	}
	w.exportLedgerBatch(ctx)
}

func (w *Worker) sweepTerminalJobs(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -w.cfg.JobRetentionDays)
	ids, err := w.store.TerminalJobIDsOlderThan(ctx, cutoff, w.cfg.CleanupBatchSize)
	if err != nil {
		w.log.Error("list terminal jobs for cleanup failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	deletable := make([]string, 0, len(ids))
	for _, id := range ids {
		if w.archiver == nil {
			deletable = append(deletable, id)
			continue
		}
		if w.archiveOne(ctx, id) {
			deletable = append(deletable, id)
		}
		// Archive failures are skipped here; the next sweep will pick
		// the job up again since it's still present in the store.
	}

	n, err := w.store.DeleteJobsByID(ctx, deletable)
	if err != nil {
		w.log.Error("delete terminal jobs failed", zap.Error(err))
		return
	}
	w.log.Info("retention sweep deleted terminal jobs", zap.Int64("count", n))
}

func (w *Worker) archiveOne(ctx context.Context, jobID string) bool {
	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		w.log.Warn("load job for archive failed", zap.String("job_id", jobID), zap.Error(err))
		return false
	}
	artifacts, err := w.store.AllArtifacts(ctx, jobID)
	if err != nil {
		w.log.Warn("load artifacts for archive failed", zap.String("job_id", jobID), zap.Error(err))
		return false
	}
	events, err := w.store.EventsAfter(ctx, jobID, 0, 100000)
	if err != nil {
		w.log.Warn("load events for archive failed", zap.String("job_id", jobID), zap.Error(err))
		return false
	}
	if err := w.archiver.ArchiveJob(ctx, *job, artifacts, events); err != nil {
		w.log.Warn("archive job failed, will retry next sweep", zap.String("job_id", jobID), zap.Error(err))
		return false
	}
	return true
}

func (w *Worker) sweepExpiredCache(ctx context.Context) {
	n, err := w.store.DeleteExpiredCache(ctx, w.cfg.CleanupBatchSize)
	if err != nil {
		w.log.Error("delete expired cache failed", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("retention sweep deleted expired cache rows", zap.Int64("count", n))
	}
}

func (w *Worker) exportLedgerBatch(ctx context.Context) {
	if w.exporter == nil {
		return
	}
	calls, err := w.store.ExternalCallsAfter(ctx, w.lastExportedID, 5000)
	if err != nil {
		w.log.Error("fetch external calls for ledger export failed", zap.Error(err))
		return
	}
	if len(calls) == 0 {
		return
	}
	if err := w.exporter.ExportBatch(ctx, calls); err != nil {
		w.log.Error("ledger export failed", zap.Error(err))
		return
	}
	w.lastExportedID = calls[len(calls)-1].ID
}
