package service

// Realtime event names pushed to connected dashboards
const (
	EventInvoiceCreated = "invoice.created"
	EventInvoicePaid    = "invoice.paid"
	EventInvoiceDeleted = "invoice.deleted"
	EventStockChanged   = "product.stock"
)

// EventPublisher fans events out to connected clients. The websocket hub implements it.
type EventPublisher interface {
	Publish(ownerID string, event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
