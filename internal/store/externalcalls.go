package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RecordExternalCall appends a ledger row for one outbound provider
// invocation. meta may be nil.
func (s *Store) RecordExternalCall(ctx context.Context, jobID, apiKeyID, service, operation string, dur time.Duration, status string, costUSD float64, meta map[string]any) error {
	var metaRaw []byte
	if meta != nil {
		var err error
		metaRaw, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal external call meta: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_calls (job_id, api_key_id, service, operation, ts, duration_ms, status, cost_usd, meta)
		VALUES ($1, $2, $3, $4, now(), $5, $6, $7, $8)`,
		jobID, apiKeyID, service, operation, dur.Milliseconds(), status, costUSD, metaRaw)
	if err != nil {
		return fmt.Errorf("record external call: %w", err)
	}
	return nil
}

// ExternalCallsAfter returns external_calls rows with id strictly
// greater than after, ascending, capped at limit. Used by the ledger
// exporter to mirror batches it hasn't yet shipped to ClickHouse.
func (s *Store) ExternalCallsAfter(ctx context.Context, after int64, limit int) ([]ExternalCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, api_key_id, service, operation, ts, duration_ms, status, cost_usd
		FROM external_calls WHERE id > $1 ORDER BY id ASC LIMIT $2`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query external calls: %w", err)
	}
	defer rows.Close()

	var out []ExternalCall
	for rows.Next() {
		var c ExternalCall
		if err := rows.Scan(&c.ID, &c.JobID, &c.APIKeyID, &c.Service, &c.Operation,
			&c.TS, &c.DurationMS, &c.Status, &c.CostUSD); err != nil {
			return nil, fmt.Errorf("scan external call: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CostSummary aggregates cost_usd per service for a job, used by the
// finalization step to compute pipeline_stats.
func (s *Store) CostSummary(ctx context.Context, jobID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, SUM(cost_usd) FROM external_calls WHERE job_id = $1 GROUP BY service`, jobID)
	if err != nil {
		return nil, fmt.Errorf("cost summary: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var service string
		var cost float64
		if err := rows.Scan(&service, &cost); err != nil {
			return nil, fmt.Errorf("scan cost summary row: %w", err)
		}
		out[service] = cost
	}
	return out, rows.Err()
}
