// Package reaper finds workers whose heartbeat has expired while they
// still hold a claimed job and requeues that job for another worker to
// pick up, preserving the queue's at-least-once guarantee across
// process crashes.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/queue"
)

type Reaper struct {
	q        *queue.Queue
	log      *zap.Logger
	interval time.Duration
}

func New(q *queue.Queue, log *zap.Logger, interval time.Duration) *Reaper {
	return &Reaper{q: q, log: log, interval: interval}
}

// Run blocks, sweeping on interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.log.Warn("reaper sweep failed", zap.Error(err))
			}
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) error {
	workers, err := r.q.ScanProcessingWorkers(ctx)
	if err != nil {
		return err
	}
	for _, workerID := range workers {
		alive, err := r.q.HeartbeatAlive(ctx, workerID)
		if err != nil {
			r.log.Warn("check heartbeat failed", zap.String("worker_id", workerID), zap.Error(err))
			continue
		}
		if alive {
			continue
		}

		env, err := r.q.ProcessingEnvelope(ctx, workerID)
		if err != nil {
			r.log.Warn("read processing envelope failed", zap.String("worker_id", workerID), zap.Error(err))
			continue
		}
		if env == nil {
			continue
		}

		r.log.Info("reaping abandoned job",
			zap.String("worker_id", workerID), zap.String("job_id", env.JobID))

		if err := r.q.Enqueue(ctx, env.JobID); err != nil {
			r.log.Warn("requeue abandoned job failed", zap.String("job_id", env.JobID), zap.Error(err))
			continue
		}
		if err := r.q.Release(ctx, workerID); err != nil {
			r.log.Warn("release abandoned worker failed", zap.String("worker_id", workerID), zap.Error(err))
		}
	}
	return nil
}
