package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/flyingrobots/creator-scout/internal/apierr"
)

// UpsertArtifact writes an artifact idempotently on (job_id, kind),
// advancing updated_at. Artifacts are single-writer (the engine).
func (s *Store) UpsertArtifact(ctx context.Context, jobID, kind string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", kind, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipeline_job_artifacts (job_id, kind, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (job_id, kind) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		jobID, kind, raw)
	if err != nil {
		return fmt.Errorf("upsert artifact %s: %w", kind, err)
	}
	return nil
}

// GetArtifact fetches a single artifact by kind.
func (s *Store) GetArtifact(ctx context.Context, jobID, kind string) (*Artifact, error) {
	var a Artifact
	a.JobID, a.Kind = jobID, kind
	err := s.db.QueryRowContext(ctx, `
		SELECT data, updated_at FROM pipeline_job_artifacts WHERE job_id = $1 AND kind = $2`,
		jobID, kind).Scan(&a.Data, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierr.NotFound("artifact %s not found for job %s", kind, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", kind, err)
	}
	return &a, nil
}

// AllArtifacts returns every artifact recorded for a job, regardless
// of kind, for archival snapshots.
func (s *Store) AllArtifacts(ctx context.Context, jobID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, kind, data, updated_at FROM pipeline_job_artifacts WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query all artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.JobID, &a.Kind, &a.Data, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// BatchArtifacts returns every artifact whose kind matches "batch:N",
// in ascending N order, for plan-stable merge into progressive/final.
func (s *Store) BatchArtifacts(ctx context.Context, jobID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, kind, data, updated_at FROM pipeline_job_artifacts
		WHERE job_id = $1 AND kind LIKE 'batch:%'
		ORDER BY (split_part(kind, ':', 2))::int ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query batch artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.JobID, &a.Kind, &a.Data, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan batch artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
