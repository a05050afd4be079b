package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

// CreateJob inserts a new pending job row. Callers are responsible for
// the idempotency check before calling this.
func (s *Store) CreateJob(ctx context.Context, jobID, apiKeyID string, params Params) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_jobs (job_id, api_key_id, status, params, meta, progress, current_stage, created_at)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, 0, $5, now())`,
		jobID, apiKeyID, JobPending, paramsJSON, StageNone)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob fetches a job by id. The caller is responsible for the
// ownership comparison against the requesting principal.
func (s *Store) GetJob(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT job_id, api_key_id, status, params, meta, progress, current_stage, error,
		       cancel_requested, created_at, started_at, finished_at
		FROM pipeline_jobs WHERE job_id = $1`, jobID)

	var j Job
	var paramsRaw, errRaw sql.NullString
	var metaRaw []byte
	if err := row.Scan(&j.JobID, &j.APIKeyID, &j.Status, &paramsRaw, &metaRaw, &j.Progress,
		&j.CurrentStage, &errRaw, &j.CancelRequested, &j.CreatedAt, &j.StartedAt, &j.FinishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.NotFound("job %s not found", jobID)
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if paramsRaw.Valid {
		if err := json.Unmarshal([]byte(paramsRaw.String), &j.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	j.Meta = metaRaw
	if errRaw.Valid && errRaw.String != "" {
		var jerr JobErr
		if err := json.Unmarshal([]byte(errRaw.String), &jerr); err == nil {
			j.Error = &jerr
		}
	}
	return &j, nil
}

// CountActiveJobs returns the number of pending/running jobs for a key.
func (s *Store) CountActiveJobs(ctx context.Context, apiKeyID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM pipeline_jobs
		WHERE api_key_id = $1 AND status IN ($2, $3)`,
		apiKeyID, JobPending, JobRunning).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return n, nil
}

// RequestCancel sets cancel_requested on a non-terminal job.
func (s *Store) RequestCancel(ctx context.Context, jobID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_jobs SET cancel_requested = true
		WHERE job_id = $1 AND status IN ($2, $3)`,
		jobID, JobPending, JobRunning)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierr.Conflict("job %s is not cancellable", jobID)
	}
	return nil
}

// IsCancelRequested is a cheap poll used by the engine before and
// during stage execution.
func (s *Store) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	var requested bool
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM pipeline_jobs WHERE job_id = $1`, jobID).Scan(&requested)
	if err != nil {
		return false, fmt.Errorf("check cancel_requested: %w", err)
	}
	return requested, nil
}

// MarkRunning transitions pending -> running and stamps started_at.
// It is a no-op (not an error) if the job is already running, so
// queue redelivery is safe.
func (s *Store) MarkRunning(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_jobs SET status = $2, started_at = COALESCE(started_at, now())
		WHERE job_id = $1 AND status = $3`,
		jobID, JobRunning, JobPending)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

// SetStage advances current_stage and progress. Terminal statuses are
// never touched by this call.
func (s *Store) SetStage(ctx context.Context, jobID string, stage Stage, progress int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_jobs SET current_stage = $2, progress = $3
		WHERE job_id = $1 AND status NOT IN ($4, $5, $6)`,
		jobID, stage, progress, JobCompleted, JobError, JobCancelled)
	if err != nil {
		return fmt.Errorf("set stage: %w", err)
	}
	return nil
}

// MergeMeta shallow-merges the given fields into job.meta.
func (s *Store) MergeMeta(ctx context.Context, jobID string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal meta patch: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE pipeline_jobs SET meta = meta || $2::jsonb WHERE job_id = $1`,
		jobID, patch)
	if err != nil {
		return fmt.Errorf("merge meta: %w", err)
	}
	return nil
}

// FinishTerminal writes a write-once terminal status transition.
// jobErr may be nil for completed/cancelled.
func (s *Store) FinishTerminal(ctx context.Context, jobID string, status JobStatus, jobErr *JobErr) error {
	if !status.Terminal() {
		return fmt.Errorf("FinishTerminal called with non-terminal status %q", status)
	}
	var errRaw []byte
	if jobErr != nil {
		var err error
		errRaw, err = json.Marshal(jobErr)
		if err != nil {
			return fmt.Errorf("marshal job error: %w", err)
		}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_jobs SET status = $2, progress = 100, error = $3, finished_at = now()
		WHERE job_id = $1 AND status NOT IN ($4, $5, $6)`,
		jobID, status, errRaw, JobCompleted, JobError, JobCancelled)
	if err != nil {
		return fmt.Errorf("finish terminal: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Already terminal: write-once, silently accept redelivery.
		return nil
	}
	return nil
}

// JobOwnedBy reports whether apiKeyID owns jobID, treating a mismatch
// identically to not-found per the ownership-check invariant.
func (s *Store) JobOwnedBy(ctx context.Context, jobID, apiKeyID string) (bool, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT api_key_id FROM pipeline_jobs WHERE job_id = $1`, jobID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}
	return owner == apiKeyID, nil
}

// ListRecentJobs returns the most recently created jobs, newest first,
// for the admin search surface to fuzzy-match against.
func (s *Store) ListRecentJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, api_key_id, status, params, meta, progress, current_stage, error,
		       cancel_requested, created_at, started_at, finished_at
		FROM pipeline_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		var paramsRaw, errRaw sql.NullString
		var metaRaw []byte
		if err := rows.Scan(&j.JobID, &j.APIKeyID, &j.Status, &paramsRaw, &metaRaw, &j.Progress,
			&j.CurrentStage, &errRaw, &j.CancelRequested, &j.CreatedAt, &j.StartedAt, &j.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if paramsRaw.Valid {
			if err := json.Unmarshal([]byte(paramsRaw.String), &j.Params); err != nil {
				return nil, fmt.Errorf("unmarshal params: %w", err)
			}
		}
		j.Meta = metaRaw
		out = append(out, j)
	}
	return out, rows.Err()
}

// TerminalJobIDsOlderThan lists job ids eligible for retention cleanup,
// so callers can archive them before DeleteJobsByID removes the rows.
func (s *Store) TerminalJobIDsOlderThan(ctx context.Context, cutoff time.Time, batchSize int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id FROM pipeline_jobs
		WHERE status IN ($1, $2, $3) AND finished_at < $4
		LIMIT $5`, JobCompleted, JobError, JobCancelled, cutoff, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list terminal job ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteJobsByID deletes the given jobs (and cascades to
// artifacts/events/external_calls via FK policy).
func (s *Store) DeleteJobsByID(ctx context.Context, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_jobs WHERE job_id = ANY($1)`, pq.Array(jobIDs))
	if err != nil {
		return 0, fmt.Errorf("delete jobs by id: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
