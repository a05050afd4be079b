package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReserveIdempotencyFirstClaimWins(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	existing, claimed, err := q.ReserveIdempotency(ctx, "tenant-1", "tok-1", "job-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Empty(t, existing)

	existing, claimed, err = q.ReserveIdempotency(ctx, "tenant-1", "tok-1", "job-2")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, "job-1", existing)
}

func TestReserveIdempotencyScopedByPrincipal(t *testing.T) {
	q, _ := testQueue(t)
	ctx := context.Background()

	_, claimed, err := q.ReserveIdempotency(ctx, "tenant-1", "tok-1", "job-1")
	require.NoError(t, err)
	require.True(t, claimed)

	_, claimed, err = q.ReserveIdempotency(ctx, "tenant-2", "tok-1", "job-2")
	require.NoError(t, err)
	require.True(t, claimed, "the same token under a different principal is a fresh claim")
}
