//go:build integration

// Run with: go test -tags integration ./internal/offline/...
package offline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisStore_QueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	rdb, err := NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisStore(rdb, "")
	dead := NewRedisStore(rdb, DeadLetterPrefix+DefaultRedisKey)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	q, err := OpenQueue(ctx, store, nil, WithDeadLetterStore(dead))
	require.NoError(t, err)
	for _, n := range []string{"FAC-1", "FAC-2", "FAC-3"} {
		require.NoError(t, q.Enqueue(ctx, sale(n)))
	}

	sub := &fakeSubmitter{fail: map[string]error{"FAC-2": errUnreachable}}
	res, err := NewProcessor(q, sub, WithMaxAttempts(1)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, res.DeadLettered)

	reopened, err := OpenQueue(ctx, store, nil, WithDeadLetterStore(dead))
	require.NoError(t, err)
	assert.Zero(t, reopened.Len())
	require.Len(t, reopened.DeadLetters(), 1)
	assert.Equal(t, "FAC-2", reopened.DeadLetters()[0].Sale.InvoiceNumber)

	raw, err := rdb.Get(ctx, DeadLetterPrefix+DefaultRedisKey).Result()
	require.NoError(t, err)
	assert.Contains(t, raw, "FAC-2")
}
