// Package engine implements the execution engine: the four-stage
// pipeline state machine (query expansion, vector search, interleaved
// enrichment+scoring with adaptive early-stop) that turns an admitted
// job into a ranked shortlist of creator profiles.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flyingrobots/creator-scout/internal/apierr"
	"github.com/flyingrobots/creator-scout/internal/breaker"
	"github.com/flyingrobots/creator-scout/internal/config"
	"github.com/flyingrobots/creator-scout/internal/obs"
	"github.com/flyingrobots/creator-scout/internal/queue"
	"github.com/flyingrobots/creator-scout/internal/store"
)

type Engine struct {
	WorkerID string

	store     *store.Store
	q         *queue.Queue
	breakers  *breaker.Registry
	providers Providers
	cfg       config.Pipeline
	log       *zap.Logger
	metrics   *obs.Metrics

	onTerminal func(ctx context.Context, job *store.Job)
}

type Option func(*Engine)

// WithTerminalHook registers a callback invoked once a job reaches a
// terminal status; main uses it to publish terminal transitions to the
// event bus.
func WithTerminalHook(fn func(ctx context.Context, job *store.Job)) Option {
	return func(e *Engine) { e.onTerminal = fn }
}

func New(workerID string, st *store.Store, q *queue.Queue, breakers *breaker.Registry, providers Providers, cfg config.Pipeline, log *zap.Logger, metrics *obs.Metrics, opts ...Option) *Engine {
	e := &Engine{
		WorkerID:  workerID,
		store:     st,
		q:         q,
		breakers:  breakers,
		providers: providers,
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run blocks, dequeuing and executing jobs one at a time, until ctx is
// cancelled. Multiple Engine instances (one worker process each) can
// run concurrently against the same queue; the queue's BRPOP provides
// mutual exclusion per job.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := e.q.PromoteDueRetries(ctx); err != nil {
			e.log.Warn("promote due retries failed", zap.Error(err))
		}

		env, err := e.q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn("dequeue failed", zap.Error(err))
			continue
		}
		if env == nil {
			continue // BRPOP timeout, loop to recheck ctx
		}

		if err := e.q.Claim(ctx, e.WorkerID, env); err != nil {
			e.log.Warn("claim failed", zap.Error(err))
			continue
		}

		e.processEnvelope(ctx, env)
	}
}

func (e *Engine) processEnvelope(ctx context.Context, env *queue.Envelope) {
	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	go e.heartbeatLoop(hbCtx, env.JobID)

	err := e.runJob(ctx, env.JobID)
	cancelHB()

	if err == nil {
		if releaseErr := e.q.Release(ctx, e.WorkerID); releaseErr != nil {
			e.log.Warn("release failed", zap.String("job_id", env.JobID), zap.Error(releaseErr))
		}
		return
	}

	if apiErr, ok := apierr.As(err); ok && apiErr.Kind == apierr.KindFatal {
		// Fatal stage failures are already persisted by runJob; do not
		// retry, just release the claim.
		if releaseErr := e.q.Release(ctx, e.WorkerID); releaseErr != nil {
			e.log.Warn("release failed", zap.String("job_id", env.JobID), zap.Error(releaseErr))
		}
		return
	}

	// Transient failure (e.g. persistence hiccup): redeliver via the
	// queue's backoff, up to MaxAttempts, before giving up fatally.
	exhausted, reqErr := e.q.Requeue(ctx, env)
	if reqErr != nil {
		e.log.Error("requeue failed", zap.String("job_id", env.JobID), zap.Error(reqErr))
	}
	if exhausted {
		jerr := &store.JobErr{Kind: string(apierr.KindFatal), Message: fmt.Sprintf("exhausted retries: %v", err)}
		if ferr := e.store.FinishTerminal(ctx, env.JobID, store.JobError, jerr); ferr != nil {
			e.log.Error("finish terminal after exhaustion failed", zap.String("job_id", env.JobID), zap.Error(ferr))
		}
		e.notifyTerminal(ctx, env.JobID)
	}
	if releaseErr := e.q.Release(ctx, e.WorkerID); releaseErr != nil {
		e.log.Warn("release failed", zap.String("job_id", env.JobID), zap.Error(releaseErr))
	}
}

func (e *Engine) heartbeatLoop(ctx context.Context, jobID string) {
	ticker := time.NewTicker(e.cfg.PollInterval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.q.Heartbeat(ctx, e.WorkerID); err != nil {
				e.log.Warn("heartbeat failed", zap.String("job_id", jobID), zap.Error(err))
			}
		}
	}
}

// checkCancelled is called before every outbound call, before
// processing each ready batch, and around every sleep.
func (e *Engine) checkCancelled(ctx context.Context, jobID string) (bool, error) {
	cancelled, err := e.store.IsCancelRequested(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("check cancel_requested: %w", err)
	}
	return cancelled, nil
}

func (e *Engine) notifyTerminal(ctx context.Context, jobID string) {
	if e.onTerminal == nil {
		return
	}
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		e.log.Warn("load job for terminal hook failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	e.onTerminal(ctx, job)
}
