package offline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	mu   sync.Mutex
	runs int
}

func (s *countingSyncer) Run(context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	return Result{}, nil
}

func (s *countingSyncer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := NewMonitor(nil)
	assert.False(t, m.Online())
}

func TestMonitor_OnePassPerTransition(t *testing.T) {
	ctx := context.Background()
	syncer := &countingSyncer{}
	m := NewMonitor(syncer)
	a, b := m.Subscribe(), m.Subscribe()

	m.SetOnline(ctx, true)
	m.SetOnline(ctx, true) // no transition
	m.Wait()
	assert.Equal(t, 1, syncer.count())
	assert.True(t, <-a)
	assert.True(t, <-b)

	m.SetOnline(ctx, false)
	m.Wait()
	assert.Equal(t, 1, syncer.count())
	assert.False(t, <-a)

	m.SetOnline(ctx, true)
	m.Wait()
	assert.Equal(t, 2, syncer.count())
}

func TestMonitor_SlowSubscriberSeesLatest(t *testing.T) {
	ctx := context.Background()
	m := NewMonitor(nil)
	ch := m.Subscribe()

	m.SetOnline(ctx, true)
	m.SetOnline(ctx, false)
	m.SetOnline(ctx, true)

	require.Len(t, ch, 1)
	assert.True(t, <-ch)
}

// connection returns with sales queued while offline
func TestMonitor_ReconnectDrainsQueue(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	q := openQueue(t, NewMemoryStore(), n)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	require.NoError(t, q.Enqueue(ctx, sale("B")))
	sub := &fakeSubmitter{}
	m := NewMonitor(NewProcessor(q, sub, WithNotifier(n)))

	m.SetOnline(ctx, true)
	m.Wait()

	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{"A", "B"}, sub.calls())
	assert.Len(t, n.succeeded, 1)
}
