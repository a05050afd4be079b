package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/store"
)

// runJob drives one job through every stage it has not yet completed.
// Redelivery-safe: each stage entry point re-reads job state and skips
// work already reflected in a terminal stage or status.
func (e *Engine) runJob(ctx context.Context, jobID string) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		return nil // already finished by a prior delivery
	}
	if err := e.store.MarkRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	wf := NewWaterfall()
	rc := &runContext{job: job, waterfall: wf}

	if cancelled, err := e.finishIfCancelled(ctx, jobID); err != nil {
		return err
	} else if cancelled {
		return nil
	}

	if job.CurrentStage == store.StageNone {
		if err := e.runStage1(ctx, rc); err != nil {
			return e.failStage(ctx, jobID, store.StageQueryExpansion, err)
		}
	}
	if cancelled, err := e.finishIfCancelled(ctx, jobID); err != nil {
		return err
	} else if cancelled {
		return nil
	}

	if job.CurrentStage == store.StageNone || job.CurrentStage == store.StageQueryExpansion {
		if err := e.runStage2(ctx, rc); err != nil {
			return e.failStage(ctx, jobID, store.StageVectorSearch, err)
		}
	}
	if cancelled, err := e.finishIfCancelled(ctx, jobID); err != nil {
		return err
	} else if cancelled {
		return nil
	}

	if err := e.runStage34(ctx, rc); err != nil {
		if apierr.KindOf(err) == apierr.KindCancelled {
			return e.finishCancelled(ctx, jobID)
		}
		return e.failStage(ctx, jobID, store.StageScoring, err)
	}

	return e.finishCompleted(ctx, rc)
}

// runContext threads per-run state (loaded job, keyword list,
// candidates, waterfall, counters) between stages without needing a
// re-read from the store at every step.
type runContext struct {
	job       *store.Job
	waterfall *Waterfall

	keywords   []string
	candidates []candidateEntry

	batchesCompleted int
	batchesFailed    int
	goodFound        int
	cacheHits        int
	enrichmentCalls  int
	profilesScored   int
}

func (e *Engine) finishIfCancelled(ctx context.Context, jobID string) (bool, error) {
	cancelled, err := e.checkCancelled(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !cancelled {
		return false, nil
	}
	return true, e.finishCancelled(ctx, jobID)
}

func (e *Engine) finishCancelled(ctx context.Context, jobID string) error {
	if err := e.store.FinishTerminal(ctx, jobID, store.JobCancelled, nil); err != nil {
		return fmt.Errorf("finish cancelled: %w", err)
	}
	if _, err := e.store.AppendEvent(ctx, jobID, store.LevelInfo, "pipeline_summary", map[string]any{
		"status": store.JobCancelled,
	}); err != nil {
		e.log.Warn("append cancellation summary event failed", zap.String("job_id", jobID), zap.Error(err))
	}
	e.notifyTerminal(ctx, jobID)
	return nil
}

func (e *Engine) failStage(ctx context.Context, jobID string, stage store.Stage, stageErr error) error {
	apiErr, ok := apierr.As(stageErr)
	kind := apierr.KindFatal
	msg := stageErr.Error()
	if ok {
		kind = apiErr.Kind
		msg = apiErr.Message
	}
	jerr := &store.JobErr{Kind: string(kind), Message: msg, Stage: string(stage)}
	if err := e.store.FinishTerminal(ctx, jobID, store.JobError, jerr); err != nil {
		return fmt.Errorf("finish error: %w", err)
	}
	if _, err := e.store.AppendEvent(ctx, jobID, store.LevelError, "pipeline_summary", map[string]any{
		"status": store.JobError,
		"stage":  stage,
		"error":  msg,
	}); err != nil {
		e.log.Warn("append error summary event failed", zap.String("job_id", jobID), zap.Error(err))
	}
	e.notifyTerminal(ctx, jobID)
	return apierr.Fatal(msg, stageErr)
}

func (e *Engine) finishCompleted(ctx context.Context, rc *runContext) error {
	jobID := rc.job.JobID
	if err := e.store.FinishTerminal(ctx, jobID, store.JobCompleted, nil); err != nil {
		return fmt.Errorf("finish completed: %w", err)
	}
	if err := e.store.UpsertArtifact(ctx, jobID, store.ArtifactTiming, map[string]any{
		"spans": rc.waterfall.Spans(),
	}); err != nil {
		e.log.Warn("upsert timing artifact failed", zap.String("job_id", jobID), zap.Error(err))
	}
	if _, err := e.store.AppendEvent(ctx, jobID, store.LevelInfo, "pipeline_summary", map[string]any{
		"status":            store.JobCompleted,
		"batches_completed": rc.batchesCompleted,
		"batches_failed":    rc.batchesFailed,
		"good_found":        rc.goodFound,
		"cache_hits":        rc.cacheHits,
	}); err != nil {
		e.log.Warn("append completion summary event failed", zap.String("job_id", jobID), zap.Error(err))
	}
	e.notifyTerminal(ctx, jobID)
	return nil
}

func sleepInterruptible(ctx context.Context, d time.Duration) {
	const slice = 500 * time.Millisecond
	for remaining := d; remaining > 0; remaining -= slice {
		wait := slice
		if remaining < slice {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
