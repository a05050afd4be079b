package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// AppendEvent inserts an append-only event row and returns its id.
// Events are never mutated once written.
func (s *Store) AppendEvent(ctx context.Context, jobID string, level EventLevel, typ string, payload any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal event payload: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO pipeline_job_events (job_id, ts, level, type, data)
		VALUES ($1, now(), $2, $3, $4) RETURNING id`,
		jobID, level, typ, raw).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

// EventsAfter returns events with id strictly greater than after, in
// ascending id order, capped at limit.
func (s *Store) EventsAfter(ctx context.Context, jobID string, after int64, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, ts, level, type, data FROM pipeline_job_events
		WHERE job_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`,
		jobID, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.JobID, &e.TS, &e.Level, &e.Type, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MaxEventID returns the current maximum event id for a job, used by
// the SSE loop to detect whether a poll returned anything new.
func (s *Store) MaxEventID(ctx context.Context, jobID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(id), 0) FROM pipeline_job_events WHERE job_id = $1`, jobID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("max event id: %w", err)
	}
	return id, nil
}
