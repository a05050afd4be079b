// Package queue implements the at-least-once Redis-backed job queue,
// its server-side token-bucket rate limiter, and idempotency
// reservations used by the admission service.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flyingrobots/creator-scout/internal/config"
)

// Envelope is the payload placed on the jobs list. It names only the
// job id; every other piece of state lives in the durable store so
// redelivery is always safe to re-read.
type Envelope struct {
	JobID    string    `json:"job_id"`
	Attempts int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue is the FIFO-per-key list plus delayed-retry ZSET.
type Queue struct {
	rdb *redis.Client
	cfg config.Queue
}

func New(rdb *redis.Client, cfg config.Queue) *Queue {
	return &Queue{rdb: rdb, cfg: cfg}
}

// Enqueue pushes a fresh envelope (attempts=0) onto the jobs list.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	env := Envelope{JobID: jobID, Attempts: 0, EnqueuedAt: time.Now()}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.cfg.JobsKey, raw).Err(); err != nil {
		return fmt.Errorf("lpush job: %w", err)
	}
	return nil
}

// Dequeue blocks up to the configured BRPOP timeout for the next job.
// Returns (nil, nil) on timeout so callers can loop and check for
// shutdown.
func (q *Queue) Dequeue(ctx context.Context) (*Envelope, error) {
	res, err := q.rdb.BRPop(ctx, q.cfg.BRPopTimeout, q.cfg.JobsKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brpop: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected brpop reply shape: %v", res)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Requeue schedules a failed envelope for delayed redelivery with
// exponential backoff, or drops it permanently once the number of
// failed attempts reaches MaxAttempts (the caller is expected to mark
// the job fatal in that case).
func (q *Queue) Requeue(ctx context.Context, env *Envelope) (exhausted bool, err error) {
	env.Attempts++
	if env.Attempts >= q.cfg.MaxAttempts {
		return true, nil
	}

	backoff := q.cfg.BackoffBase * time.Duration(1<<uint(env.Attempts-1))
	if backoff > q.cfg.BackoffMax {
		backoff = q.cfg.BackoffMax
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return false, fmt.Errorf("marshal envelope: %w", err)
	}
	score := float64(time.Now().Add(backoff).UnixMilli())
	if err := q.rdb.ZAdd(ctx, q.cfg.RetryZSetKey, redis.Z{Score: score, Member: raw}).Err(); err != nil {
		return false, fmt.Errorf("zadd retry: %w", err)
	}
	return false, nil
}

// PromoteDueRetries moves retry-set members whose delay has elapsed
// back onto the jobs list. The engine's poll loop calls it before each
// dequeue, so no separate maintenance loop is needed at this queue's
// scale.
func (q *Queue) PromoteDueRetries(ctx context.Context) (int, error) {
	now := float64(time.Now().UnixMilli())
	members, err := q.rdb.ZRangeByScore(ctx, q.cfg.RetryZSetKey, &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore: %w", err)
	}
	for _, m := range members {
		pipe := q.rdb.TxPipeline()
		pipe.LPush(ctx, q.cfg.JobsKey, m)
		pipe.ZRem(ctx, q.cfg.RetryZSetKey, m)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, fmt.Errorf("promote retry: %w", err)
		}
	}
	return len(members), nil
}

// Depth reports the current length of the primary jobs list, used for
// the queue-depth gauge.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.cfg.JobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("llen: %w", err)
	}
	return n, nil
}

// RetryDepth reports the size of the delayed-retry set.
func (q *Queue) RetryDepth(ctx context.Context) (int64, error) {
	n, err := q.rdb.ZCard(ctx, q.cfg.RetryZSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return n, nil
}
