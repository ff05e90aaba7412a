package offline

import (
	"shopdesk/internal/logger"

	"github.com/rs/zerolog"
)

// Notifier receives the user-facing events of the offline flow
type Notifier interface {
	// SavedOffline fires after a sale was durably queued
	SavedOffline(sale PendingSale, queued int)
	SyncStarted(pending int)
	// SyncSucceeded fires when at least one sale was accepted during the pass
	SyncSucceeded(res Result)
	// SyncFailed fires when a non-empty pass accepted nothing
	SyncFailed(res Result)
}

// LogNotifier reports events through zerolog
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("offline")}
}

func (n *LogNotifier) SavedOffline(sale PendingSale, queued int) {
	n.log.Info().
		Str("invoice_number", sale.InvoiceNumber).
		Str("correlation_id", sale.CorrelationID).
		Int("queued", queued).
		Msg("sale saved offline")
}

func (n *LogNotifier) SyncStarted(pending int) {
	n.log.Info().Int("pending", pending).Msg("synchronizing offline sales")
}

func (n *LogNotifier) SyncSucceeded(res Result) {
	n.log.Info().
		Int("synced", res.Synced).
		Int("failed", res.Failed).
		Int("dead_lettered", res.DeadLettered).
		Msg("offline sales synchronized")
}

func (n *LogNotifier) SyncFailed(res Result) {
	evt := n.log.Error().Int("failed", res.Failed).Int("dead_lettered", res.DeadLettered)
	if err := res.FirstError(); err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("synchronization failed")
}

type noopNotifier struct{}

func (noopNotifier) SavedOffline(PendingSale, int) {}
func (noopNotifier) SyncStarted(int)               {}
func (noopNotifier) SyncSucceeded(Result)          {}
func (noopNotifier) SyncFailed(Result)             {}
