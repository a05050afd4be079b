package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaimHeartbeatReleaseLifecycle(t *testing.T) {
	q, mr := testQueue(t)
	ctx := context.Background()
	env := &Envelope{JobID: "job-1", Attempts: 0}

	require.NoError(t, q.Claim(ctx, "worker-1", env))

	alive, err := q.HeartbeatAlive(ctx, "worker-1")
	require.NoError(t, err)
	require.True(t, alive)

	got, err := q.ProcessingEnvelope(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, env.JobID, got.JobID)

	require.NoError(t, q.Heartbeat(ctx, "worker-1"))

	require.NoError(t, q.Release(ctx, "worker-1"))

	alive, err = q.HeartbeatAlive(ctx, "worker-1")
	require.NoError(t, err)
	require.False(t, alive)

	got, err = q.ProcessingEnvelope(ctx, "worker-1")
	require.NoError(t, err)
	require.Nil(t, got)

	_ = mr
}

func TestScanProcessingWorkersFindsClaimedWorkers(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Claim(ctx, "worker-1", &Envelope{JobID: "job-1"}))
	require.NoError(t, q.Claim(ctx, "worker-2", &Envelope{JobID: "job-2"}))

	workers, err := q.ScanProcessingWorkers(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"worker-1", "worker-2"}, workers)
}

func TestHeartbeatAliveFalseForUnknownWorker(t *testing.T) {
	q, _ := testQueue(t)
	alive, err := q.HeartbeatAlive(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, alive)
}
