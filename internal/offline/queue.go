package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Queue is the durable FIFO of pending sales. Every mutation is written through
// to the store before it becomes visible in memory.
type Queue struct {
	mu       sync.Mutex
	store    QueueStore
	dead     QueueStore
	notifier Notifier

	entries     []Entry
	deadEntries []Entry
	// epoch changes on Clear so a running pass does not resurrect cleared entries
	epoch uint64
	now   func() time.Time
}

// QueueOption configures OpenQueue
type QueueOption func(*Queue)

// WithDeadLetterStore sets where entries that exhausted their retry budget are kept
func WithDeadLetterStore(s QueueStore) QueueOption {
	return func(q *Queue) { q.dead = s }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// OpenQueue restores the queue from store. A store that holds nothing yields an empty queue.
func OpenQueue(ctx context.Context, store QueueStore, notifier Notifier, opts ...QueueOption) (*Queue, error) {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	q := &Queue{
		store:    store,
		dead:     NewMemoryStore(),
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}

	entries, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	dead, err := q.dead.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dead letters: %w", err)
	}
	q.entries = entries
	q.deadEntries = dead
	return q, nil
}

// Enqueue appends a sale and persists the full sequence before returning.
// On a storage error the queue is left as it was.
func (q *Queue) Enqueue(ctx context.Context, sale PendingSale) error {
	q.mu.Lock()
	next := make([]Entry, len(q.entries), len(q.entries)+1)
	copy(next, q.entries)
	next = append(next, Entry{Sale: sale, EnqueuedAt: q.now().UTC()})
	if err := q.store.Save(ctx, next); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("persist offline sale %s: %w", sale.InvoiceNumber, err)
	}
	q.entries = next
	queued := len(next)
	q.mu.Unlock()

	q.notifier.SavedOffline(sale, queued)
	return nil
}

// Entries returns a copy of the queue in sync order
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneEntries(q.entries)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// DeadLetters returns the entries parked after exhausting their retry budget
func (q *Queue) DeadLetters() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneEntries(q.deadEntries)
}

// Clear drops every pending sale
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Save(ctx, nil); err != nil {
		return fmt.Errorf("clear offline queue: %w", err)
	}
	q.entries = nil
	q.epoch++
	return nil
}

// RequeueDeadLetters moves dead letters back to the tail with a fresh retry budget
func (q *Queue) RequeueDeadLetters(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.deadEntries) == 0 {
		return 0, nil
	}

	next := cloneEntries(q.entries)
	for _, e := range q.deadEntries {
		e.Attempts = 0
		e.LastError = ""
		e.LastAttemptAt = nil
		next = append(next, e)
	}
	if err := q.store.Save(ctx, next); err != nil {
		return 0, fmt.Errorf("requeue dead letters: %w", err)
	}
	moved := len(q.deadEntries)
	q.entries = next
	if err := q.dead.Save(ctx, nil); err != nil {
		// the sales are safe in the main queue, the server drops duplicates by correlation id
		return moved, fmt.Errorf("clear dead letters: %w", err)
	}
	q.deadEntries = nil
	return moved, nil
}

type snapshot struct {
	entries []Entry
	epoch   uint64
}

func (q *Queue) snapshot() snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return snapshot{entries: cloneEntries(q.entries), epoch: q.epoch}
}

// settle replaces the snapshot taken at the start of a pass with remaining,
// keeping any sale enqueued meanwhile after it, and appends dead to the dead letters.
func (q *Queue) settle(ctx context.Context, snap snapshot, remaining, dead []Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var tail []Entry
	if q.epoch == snap.epoch {
		tail = q.entries[len(snap.entries):]
	} else {
		// cleared during the pass
		tail = q.entries
		remaining = nil
	}

	next := make([]Entry, 0, len(remaining)+len(tail))
	next = append(next, remaining...)
	next = append(next, tail...)

	// dead letters go first; a failed queue write rolls them back so an entry lives in one store only
	if len(dead) > 0 {
		deadNext := append(cloneEntries(q.deadEntries), dead...)
		if err := q.dead.Save(ctx, deadNext); err != nil {
			return fmt.Errorf("persist dead letters: %w", err)
		}
	}
	if err := q.store.Save(ctx, next); err != nil {
		if len(dead) > 0 {
			if rbErr := q.dead.Save(ctx, q.deadEntries); rbErr != nil {
				return errors.Join(fmt.Errorf("persist offline queue: %w", err), fmt.Errorf("roll back dead letters: %w", rbErr))
			}
		}
		return fmt.Errorf("persist offline queue: %w", err)
	}
	if len(dead) > 0 {
		q.deadEntries = append(q.deadEntries, dead...)
	}
	q.entries = next
	return nil
}
