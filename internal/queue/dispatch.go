package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Claim marks an envelope as owned by workerID: it is written to that
// worker's processing key and a heartbeat is started. The engine must
// call Heartbeat periodically while the job runs and Release on
// completion (success or failure) so the reaper can detect abandoned
// work.
func (q *Queue) Claim(ctx context.Context, workerID string, env *Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(q.cfg.ProcessingPattern, workerID), raw, 0)
	pipe.Set(ctx, fmt.Sprintf(q.cfg.HeartbeatPattern, workerID), "1", q.cfg.HeartbeatTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	return nil
}

// Heartbeat refreshes a worker's liveness TTL.
func (q *Queue) Heartbeat(ctx context.Context, workerID string) error {
	if err := q.rdb.Expire(ctx, fmt.Sprintf(q.cfg.HeartbeatPattern, workerID), q.cfg.HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

// Release clears the processing and heartbeat keys once a job reaches
// any terminal outcome for this worker (success, requeue, or fatal).
func (q *Queue) Release(ctx context.Context, workerID string) error {
	pipe := q.rdb.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(q.cfg.ProcessingPattern, workerID))
	pipe.Del(ctx, fmt.Sprintf(q.cfg.HeartbeatPattern, workerID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	return nil
}

// ProcessingEnvelope returns the envelope currently claimed by
// workerID, if any.
func (q *Queue) ProcessingEnvelope(ctx context.Context, workerID string) (*Envelope, error) {
	raw, err := q.rdb.Get(ctx, fmt.Sprintf(q.cfg.ProcessingPattern, workerID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get processing envelope: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("unmarshal processing envelope: %w", err)
	}
	return &env, nil
}

// HeartbeatAlive reports whether workerID's heartbeat key is present.
func (q *Queue) HeartbeatAlive(ctx context.Context, workerID string) (bool, error) {
	n, err := q.rdb.Exists(ctx, fmt.Sprintf(q.cfg.HeartbeatPattern, workerID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists heartbeat: %w", err)
	}
	return n > 0, nil
}

// ScanProcessingWorkers lists worker ids that currently have a
// processing key set, by scanning the processing-key pattern.
func (q *Queue) ScanProcessingWorkers(ctx context.Context) ([]string, error) {
	pattern := fmt.Sprintf(q.cfg.ProcessingPattern, "*")
	var workers []string
	iter := q.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		workers = append(workers, extractWorkerID(q.cfg.ProcessingPattern, iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan processing keys: %w", err)
	}
	return workers, nil
}

func extractWorkerID(pattern, key string) string {
	var prefix, suffix string
	if idx := indexOfPercentS(pattern); idx >= 0 {
		prefix = pattern[:idx]
		suffix = pattern[idx+2:]
	}
	id := key
	if len(prefix) > 0 && len(id) >= len(prefix) {
		id = id[len(prefix):]
	}
	if len(suffix) > 0 && len(id) >= len(suffix) {
		id = id[:len(id)-len(suffix)]
	}
	return id
}

func indexOfPercentS(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '%' && s[i+1] == 's' {
			return i
		}
	}
	return -1
}
