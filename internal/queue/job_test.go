package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/flyingrobots/creator-scout/internal/config"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.Queue{
		JobsKey:           "jobs",
		RetryZSetKey:      "jobs:retry",
		ProcessingPattern: "processing:%s",
		HeartbeatPattern:  "heartbeat:%s",
		HeartbeatTTL:      5 * time.Second,
		MaxAttempts:       3,
		BackoffBase:       10 * time.Millisecond,
		BackoffMax:        time.Second,
		BRPopTimeout:      100 * time.Millisecond,
		IdempotencyTTL:    time.Minute,
	}
	return New(rdb, cfg), mr
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1"))

	env, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, env)
	require.Equal(t, "job-1", env.JobID)
	require.Equal(t, 0, env.Attempts)
}

func TestDequeueTimesOutWithoutError(t *testing.T) {
	q, _ := testQueue(t)
	env, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Nil(t, env)
}

func TestRequeueAppliesExponentialBackoffThenExhausts(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()
	env := &Envelope{JobID: "job-1", Attempts: 0}

	exhausted, err := q.Requeue(ctx, env)
	require.NoError(t, err)
	require.False(t, exhausted)
	require.Equal(t, 1, env.Attempts)

	n, err := q.RetryDepth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	exhausted, err = q.Requeue(ctx, env)
	require.NoError(t, err)
	require.False(t, exhausted)

	exhausted, err = q.Requeue(ctx, env)
	require.NoError(t, err)
	require.True(t, exhausted, "attempts reaching MaxAttempts should report exhausted")

	_ = mr
}

func TestPromoteDueRetriesMovesElapsedMembersBackOntoJobsList(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()
	env := &Envelope{JobID: "job-1", Attempts: 0}

	_, err := q.Requeue(ctx, env)
	require.NoError(t, err)

	n, err := q.PromoteDueRetries(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "backoff has not elapsed yet")

	// Retry due times are wall-clock based, so wait out the 10ms backoff.
	time.Sleep(50 * time.Millisecond)

	n, err = q.PromoteDueRetries(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	retryDepth, err := q.RetryDepth(ctx)
	require.NoError(t, err)
	require.Zero(t, retryDepth)
}
