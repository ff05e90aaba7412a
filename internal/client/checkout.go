package client

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/logger"
	"shopdesk/internal/offline"

	"github.com/rs/zerolog"
)

// Receipt is the result of a checkout
type Receipt struct {
	Sale      offline.PendingSale
	InvoiceID string
	Status    string
	// Offline is true when the sale was queued instead of accepted by the server
	Offline bool
}

// Checkout records sales live when the server is reachable and queues them otherwise
type Checkout struct {
	submitter offline.Submitter
	queue     *offline.Queue
	monitor   *offline.Monitor
	numbers   *offline.Numberer
	now       func() time.Time
	log       zerolog.Logger
}

// NewCheckout wires a checkout. monitor may be nil, every sale then tries the server first.
func NewCheckout(submitter offline.Submitter, queue *offline.Queue, monitor *offline.Monitor, numbers *offline.Numberer) *Checkout {
	return &Checkout{
		submitter: submitter,
		queue:     queue,
		monitor:   monitor,
		numbers:   numbers,
		now:       time.Now,
		log:       logger.WithComponent("checkout"),
	}
}

// Sell validates the cart then submits it. A transport failure queues the sale;
// a server rejection is returned to the caller and nothing is queued.
func (c *Checkout) Sell(ctx context.Context, cart offline.Cart) (Receipt, error) {
	sale, err := offline.NewSale(c.numbers, cart, c.now())
	if err != nil {
		return Receipt{}, err
	}

	if c.monitor != nil && !c.monitor.Online() {
		return c.park(ctx, sale)
	}

	ack, err := c.submitter.SubmitSale(ctx, sale)
	if err == nil {
		return Receipt{Sale: sale, InvoiceID: ack.InvoiceID, Status: ack.Status}, nil
	}
	if !IsTransport(err) {
		return Receipt{}, err
	}

	c.log.Warn().Err(err).Str("invoice_number", sale.InvoiceNumber).Msg("server unreachable, saving sale offline")
	if c.monitor != nil {
		c.monitor.SetOnline(ctx, false)
	}
	return c.park(ctx, sale)
}

func (c *Checkout) park(ctx context.Context, sale offline.PendingSale) (Receipt, error) {
	if err := c.queue.Enqueue(ctx, sale); err != nil {
		return Receipt{}, fmt.Errorf("sale could not be saved offline: %w", err)
	}
	return Receipt{Sale: sale, Status: sale.Status, Offline: true}, nil
}
