package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

func idempotencyKey(principal, token string) string {
	return fmt.Sprintf("scout:idempotency:%s:%s", principal, token)
}

// ReserveIdempotency atomically claims (principal, token) -> jobID if
// unclaimed, returning (existingJobID, claimed=false) on an existing
// mapping so the caller can replay it, or ("", true) on a fresh claim.
func (q *Queue) ReserveIdempotency(ctx context.Context, principal, token, jobID string) (existingJobID string, claimed bool, err error) {
	key := idempotencyKey(principal, token)
	ok, err := q.rdb.SetNX(ctx, key, jobID, q.cfg.IdempotencyTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("setnx idempotency: %w", err)
	}
	if ok {
		return "", true, nil
	}
	existing, err := q.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		// Raced with an expiry between SetNX and Get; treat as fresh.
		return "", true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get idempotency: %w", err)
	}
	return existing, false, nil
}
