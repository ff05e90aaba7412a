package offline

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopdesk/internal/logger"

	"github.com/rs/zerolog"
)

// ErrSyncInProgress is returned by Run while another pass is still draining the queue
var ErrSyncInProgress = errors.New("synchronization already in progress")

// Ack is the server's acceptance of a sale
type Ack struct {
	InvoiceID string
	Status    string
	// Replayed is true when the server already had this correlation id
	Replayed bool
}

// Submitter delivers one sale to the server
type Submitter interface {
	SubmitSale(ctx context.Context, sale PendingSale) (Ack, error)
}

// Outcome is what happened to one queued sale during a pass
type Outcome struct {
	CorrelationID string
	InvoiceNumber string
	InvoiceID     string
	Err           error
	Attempts      int
	DeadLettered  bool
}

// Result summarises a pass
type Result struct {
	Synced       int
	Failed       int
	DeadLettered int
	// Skipped counts entries left untouched because the context ended mid-pass
	Skipped  int
	Outcomes []Outcome
}

// FirstError returns the first submission error of the pass, if any
func (r Result) FirstError() error {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// Processor drains a Queue through a Submitter, one sale at a time in FIFO order
type Processor struct {
	queue       *Queue
	submitter   Submitter
	notifier    Notifier
	maxAttempts int
	running     sync.Mutex
	now         func() time.Time
	log         zerolog.Logger
}

// ProcessorOption configures NewProcessor
type ProcessorOption func(*Processor)

// WithMaxAttempts moves an entry to the dead letters once it failed n times. 0 retries forever.
func WithMaxAttempts(n int) ProcessorOption {
	return func(p *Processor) { p.maxAttempts = n }
}

// WithNotifier sets the receiver of sync notifications
func WithNotifier(n Notifier) ProcessorOption {
	return func(p *Processor) { p.notifier = n }
}

func NewProcessor(queue *Queue, submitter Submitter, opts ...ProcessorOption) *Processor {
	p := &Processor{
		queue:     queue,
		submitter: submitter,
		notifier:  noopNotifier{},
		now:       time.Now,
		log:       logger.WithComponent("sync"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one pass. An empty queue is a no-op without notification.
// A failure on one sale never stops the others; failed sales stay at the head of the queue in their original order.
func (p *Processor) Run(ctx context.Context) (Result, error) {
	if !p.running.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer p.running.Unlock()

	snap := p.queue.snapshot()
	if len(snap.entries) == 0 {
		return Result{}, nil
	}

	p.notifier.SyncStarted(len(snap.entries))
	p.log.Debug().Int("pending", len(snap.entries)).Msg("sync pass started")

	var (
		res       Result
		remaining []Entry
		dead      []Entry
	)
	for i, entry := range snap.entries {
		if ctx.Err() != nil {
			remaining = append(remaining, snap.entries[i:]...)
			res.Skipped = len(snap.entries) - i
			break
		}

		ack, err := p.submitter.SubmitSale(ctx, entry.Sale)
		out := Outcome{
			CorrelationID: entry.Sale.CorrelationID,
			InvoiceNumber: entry.Sale.InvoiceNumber,
		}
		if err == nil {
			res.Synced++
			out.InvoiceID = ack.InvoiceID
			out.Attempts = entry.Attempts + 1
			res.Outcomes = append(res.Outcomes, out)
			p.log.Debug().
				Str("invoice_number", entry.Sale.InvoiceNumber).
				Bool("replayed", ack.Replayed).
				Msg("sale synchronized")
			continue
		}

		if ctx.Err() != nil {
			// the pass was interrupted, not the delivery
			remaining = append(remaining, snap.entries[i:]...)
			res.Skipped = len(snap.entries) - i
			break
		}

		at := p.now().UTC()
		entry.Attempts++
		entry.LastError = err.Error()
		entry.LastAttemptAt = &at
		out.Err = err
		out.Attempts = entry.Attempts

		if p.maxAttempts > 0 && entry.Attempts >= p.maxAttempts {
			out.DeadLettered = true
			res.DeadLettered++
			dead = append(dead, entry)
			p.log.Warn().
				Err(err).
				Str("invoice_number", entry.Sale.InvoiceNumber).
				Int("attempts", entry.Attempts).
				Msg("sale moved to dead letters")
		} else {
			res.Failed++
			remaining = append(remaining, entry)
			p.log.Warn().
				Err(err).
				Str("invoice_number", entry.Sale.InvoiceNumber).
				Int("attempts", entry.Attempts).
				Msg("sale kept for retry")
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	// the outcome is persisted even when ctx ended mid-pass
	if err := p.queue.settle(context.WithoutCancel(ctx), snap, remaining, dead); err != nil {
		p.log.Error().Err(err).Msg("could not persist sync result")
		p.notifier.SyncFailed(res)
		return res, err
	}

	if res.Synced > 0 {
		p.notifier.SyncSucceeded(res)
	} else {
		p.notifier.SyncFailed(res)
	}
	return res, ctx.Err()
}
