package offline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnreachable = errors.New("dial tcp: connection refused")

type fakeSubmitter struct {
	mu        sync.Mutex
	fail      map[string]error // by invoice number
	submitted []string
	// started receives a value when a submission begins, block is then waited on
	started chan struct{}
	block   chan struct{}
}

func blockingSubmitter(fail map[string]error) *fakeSubmitter {
	return &fakeSubmitter{fail: fail, started: make(chan struct{}, 16), block: make(chan struct{})}
}

func (f *fakeSubmitter) SubmitSale(_ context.Context, sale PendingSale) (Ack, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, sale.InvoiceNumber)
	if err := f.fail[sale.InvoiceNumber]; err != nil {
		return Ack{}, err
	}
	return Ack{InvoiceID: "inv-" + sale.InvoiceNumber, Status: sale.Status}, nil
}

func (f *fakeSubmitter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.submitted...)
}

type recordingNotifier struct {
	mu        sync.Mutex
	saved     int
	started   int
	succeeded []Result
	failed    []Result
}

func (n *recordingNotifier) SavedOffline(PendingSale, int) { n.mu.Lock(); n.saved++; n.mu.Unlock() }
func (n *recordingNotifier) SyncStarted(int)               { n.mu.Lock(); n.started++; n.mu.Unlock() }
func (n *recordingNotifier) SyncSucceeded(r Result) {
	n.mu.Lock()
	n.succeeded = append(n.succeeded, r)
	n.mu.Unlock()
}
func (n *recordingNotifier) SyncFailed(r Result) {
	n.mu.Lock()
	n.failed = append(n.failed, r)
	n.mu.Unlock()
}

func sale(number string) PendingSale {
	return PendingSale{
		CorrelationID: "corr-" + number,
		InvoiceNumber: number,
		CustomerName:  "AWA",
		Items:         []SaleItem{{Name: "Rice", UnitPrice: decimal.NewFromInt(5000), Quantity: 2}},
		TotalAmount:   decimal.NewFromInt(10000),
		AmountPaid:    decimal.NewFromInt(10000),
		Status:        "PAID",
	}
}

func numbers(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Sale.InvoiceNumber)
	}
	return out
}

func openQueue(t *testing.T, store QueueStore, n Notifier) *Queue {
	t.Helper()
	q, err := OpenQueue(context.Background(), store, n)
	require.NoError(t, err)
	return q
}

func TestEnqueue_PersistsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	n := &recordingNotifier{}
	q := openQueue(t, store, n)

	for _, num := range []string{"A", "B", "C"} {
		require.NoError(t, q.Enqueue(ctx, sale(num)))
	}

	assert.Equal(t, []string{"A", "B", "C"}, numbers(q.Entries()))
	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, numbers(stored))
	assert.Equal(t, 3, n.saved)
}

func TestEnqueue_StorageFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	n := &recordingNotifier{}
	q := openQueue(t, store, n)
	require.NoError(t, q.Enqueue(ctx, sale("A")))

	store.FailSave = errors.New("disk full")
	err := q.Enqueue(ctx, sale("B"))

	require.Error(t, err)
	assert.ErrorIs(t, err, store.FailSave)
	assert.Equal(t, []string{"A"}, numbers(q.Entries()))
	assert.Equal(t, 1, n.saved)
}

func TestOpenQueue_RestoresFromStore(t *testing.T) {
	store := NewMemoryStore(Entry{Sale: sale("A")}, Entry{Sale: sale("B"), Attempts: 2})
	q := openQueue(t, store, nil)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Entries()[1].Attempts)
}

func TestRun_AllSucceed(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	q := openQueue(t, NewMemoryStore(), n)
	for _, num := range []string{"A", "B"} {
		require.NoError(t, q.Enqueue(ctx, sale(num)))
	}
	sub := &fakeSubmitter{}
	p := NewProcessor(q, sub, WithNotifier(n))

	res, err := p.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{"A", "B"}, sub.calls())
	require.Len(t, n.succeeded, 1)
	assert.Empty(t, n.failed)
	assert.Equal(t, "inv-A", res.Outcomes[0].InvoiceID)
}

// three sales queued offline, the second one is rejected
func TestRun_PartialFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	n := &recordingNotifier{}
	q := openQueue(t, store, n)
	for _, num := range []string{"S1", "S2", "S3"} {
		require.NoError(t, q.Enqueue(ctx, sale(num)))
	}
	sub := &fakeSubmitter{fail: map[string]error{"S2": errors.New("HTTP 400: invalid items")}}
	p := NewProcessor(q, sub, WithNotifier(n))

	res, err := p.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"S1", "S2", "S3"}, sub.calls())
	assert.Equal(t, 2, res.Synced)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"S2"}, numbers(q.Entries()))
	assert.Equal(t, 1, q.Entries()[0].Attempts)
	assert.Contains(t, q.Entries()[0].LastError, "invalid items")

	stored, _ := store.Load(ctx)
	assert.Equal(t, []string{"S2"}, numbers(stored))
	require.Len(t, n.succeeded, 1)
	assert.Empty(t, n.failed)

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "corr-S2", res.Outcomes[1].CorrelationID)
	assert.Error(t, res.Outcomes[1].Err)
}

func TestRun_NothingAcceptedNotifiesFailure(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	q := openQueue(t, NewMemoryStore(), n)
	for _, num := range []string{"A", "B"} {
		require.NoError(t, q.Enqueue(ctx, sale(num)))
	}
	sub := &fakeSubmitter{fail: map[string]error{"A": errUnreachable, "B": errUnreachable}}

	res, err := NewProcessor(q, sub, WithNotifier(n)).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, res.Synced)
	assert.Equal(t, []string{"A", "B"}, numbers(q.Entries()))
	assert.Empty(t, n.succeeded)
	require.Len(t, n.failed, 1)
	assert.ErrorIs(t, n.failed[0].FirstError(), errUnreachable)
}

func TestRun_EmptyQueueIsNoop(t *testing.T) {
	n := &recordingNotifier{}
	q := openQueue(t, NewMemoryStore(), n)
	sub := &fakeSubmitter{}
	p := NewProcessor(q, sub, WithNotifier(n))

	for i := 0; i < 2; i++ {
		res, err := p.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Result{}, res)
	}
	assert.Empty(t, sub.calls())
	assert.Zero(t, n.started)
	assert.Empty(t, n.succeeded)
	assert.Empty(t, n.failed)
}

func TestRun_SecondPassAfterDrainIsNoop(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	sub := &fakeSubmitter{}
	p := NewProcessor(q, sub)

	_, err := p.Run(ctx)
	require.NoError(t, err)
	_, err = p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, sub.calls())
}

func TestRun_RetryBudgetMovesToDeadLetters(t *testing.T) {
	ctx := context.Background()
	dead := NewMemoryStore()
	q, err := OpenQueue(ctx, NewMemoryStore(), nil, WithDeadLetterStore(dead))
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, sale("BAD")))
	require.NoError(t, q.Enqueue(ctx, sale("OK")))
	sub := &fakeSubmitter{fail: map[string]error{"BAD": errors.New("HTTP 400")}}
	p := NewProcessor(q, sub, WithMaxAttempts(2))

	res, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"BAD"}, numbers(q.Entries()))

	res, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeadLettered)
	assert.True(t, res.Outcomes[0].DeadLettered)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []string{"BAD"}, numbers(q.DeadLetters()))
	stored, _ := dead.Load(ctx)
	assert.Equal(t, 2, stored[0].Attempts)

	moved, err := q.RequeueDeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Equal(t, 0, q.Entries()[0].Attempts)
	assert.Empty(t, q.DeadLetters())
}

func TestRun_ZeroBudgetRetriesForever(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(ctx, sale("BAD")))
	p := NewProcessor(q, &fakeSubmitter{fail: map[string]error{"BAD": errUnreachable}})

	for i := 0; i < 5; i++ {
		_, err := p.Run(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 1, q.Len())
	assert.Equal(t, 5, q.Entries()[0].Attempts)
	assert.Empty(t, q.DeadLetters())
}

func TestRun_OverlappingPassRejected(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	sub := blockingSubmitter(nil)
	p := NewProcessor(q, sub)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()
	<-sub.started

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(sub.block)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"A"}, sub.calls())
}

func TestRun_SaleEnqueuedDuringPassIsKept(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	require.NoError(t, q.Enqueue(ctx, sale("B")))
	sub := blockingSubmitter(map[string]error{"B": errUnreachable})
	p := NewProcessor(q, sub)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()
	<-sub.started

	require.NoError(t, q.Enqueue(ctx, sale("C")))
	close(sub.block)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"B", "C"}, numbers(q.Entries()))
	assert.Equal(t, []string{"A", "B"}, sub.calls())
}

func TestRun_ConcurrentEnqueue(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	sub := &fakeSubmitter{}
	p := NewProcessor(q, sub)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, q.Enqueue(ctx, sale(fmt.Sprintf("S%02d", i))))
		}(i)
	}
	for i := 0; i < 5; i++ {
		_, _ = p.Run(ctx)
	}
	wg.Wait()
	_, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, q.Len())
	assert.Len(t, sub.calls(), 50)
}

func TestRun_ClearDuringPassDropsRemaining(t *testing.T) {
	ctx := context.Background()
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	sub := blockingSubmitter(map[string]error{"A": errUnreachable})
	p := NewProcessor(q, sub)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		done <- err
	}()
	<-sub.started
	require.NoError(t, q.Clear(ctx))
	close(sub.block)
	require.NoError(t, <-done)

	assert.Equal(t, 0, q.Len())
}

func TestRun_CancelledContextKeepsUnsubmitted(t *testing.T) {
	q := openQueue(t, NewMemoryStore(), nil)
	require.NoError(t, q.Enqueue(context.Background(), sale("A")))
	require.NoError(t, q.Enqueue(context.Background(), sale("B")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewProcessor(q, &fakeSubmitter{}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"A", "B"}, numbers(q.Entries()))
	assert.Equal(t, 0, q.Entries()[0].Attempts)
}

type submitFunc func(ctx context.Context, sale PendingSale) (Ack, error)

func (f submitFunc) SubmitSale(ctx context.Context, sale PendingSale) (Ack, error) { return f(ctx, sale) }

func TestRun_CancelledMidSubmitKeepsRetryBudget(t *testing.T) {
	dead := NewMemoryStore()
	q, err := OpenQueue(context.Background(), NewMemoryStore(), nil, WithDeadLetterStore(dead))
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), sale("A")))
	require.NoError(t, q.Enqueue(context.Background(), sale("B")))

	ctx, cancel := context.WithCancel(context.Background())
	sub := submitFunc(func(ctx context.Context, _ PendingSale) (Ack, error) {
		cancel()
		return Ack{}, ctx.Err()
	})

	res, err := NewProcessor(q, sub, WithMaxAttempts(1)).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.DeadLettered)
	assert.Equal(t, []string{"A", "B"}, numbers(q.Entries()))
	assert.Equal(t, 0, q.Entries()[0].Attempts)
	assert.Empty(t, q.DeadLetters())
	stored, _ := dead.Load(context.Background())
	assert.Empty(t, stored)
}

func TestRun_QueueWriteFailureRollsBackDeadLetters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	dead := NewMemoryStore()
	q, err := OpenQueue(ctx, store, nil, WithDeadLetterStore(dead))
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, sale("BAD")))

	store.FailSave = errors.New("disk full")
	sub := &fakeSubmitter{fail: map[string]error{"BAD": errors.New("HTTP 400")}}
	_, err = NewProcessor(q, sub, WithMaxAttempts(1)).Run(ctx)
	assert.ErrorIs(t, err, store.FailSave)

	assert.Empty(t, q.DeadLetters())
	deadStored, _ := dead.Load(ctx)
	assert.Empty(t, deadStored)
	queued, _ := store.Load(ctx)
	assert.Equal(t, []string{"BAD"}, numbers(queued))
	assert.Equal(t, []string{"BAD"}, numbers(q.Entries()))
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), DefaultQueueFile)
	store := NewFileStore(path)

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	q := openQueue(t, store, nil)
	require.NoError(t, q.Enqueue(ctx, sale("A")))
	require.NoError(t, q.Enqueue(ctx, sale("B")))

	reopened := openQueue(t, NewFileStore(path), nil)
	got := reopened.Entries()
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[1].Sale.InvoiceNumber)
	assert.True(t, got[0].Sale.TotalAmount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "corr-A", got[0].Sale.CorrelationID)

	require.NoError(t, reopened.Clear(ctx))
	entries, err = NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, writeFile(path, "{not json"))

	_, err := OpenQueue(context.Background(), NewFileStore(path), nil)
	assert.Error(t, err)
}
