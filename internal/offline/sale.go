package offline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/model"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Checkout validation errors
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCustomerRequired = errors.New("customer name is required")
	ErrInvalidItem      = errors.New("invalid cart item")
	ErrPaidExceedsTotal = errors.New("amount paid exceeds total")
	ErrNegativePayment  = errors.New("amount paid is negative")
)

// SaleItem is one cart line
type SaleItem struct {
	ProductID string          `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PendingSale is a sale captured on the device and not yet accepted by the server.
// It is posted as is to POST /api/invoices. The server recomputes Status.
type PendingSale struct {
	CorrelationID string          `json:"correlation_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Items         []SaleItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Cart is the input of NewSale
type Cart struct {
	CustomerName  string
	CustomerPhone string
	Items         []SaleItem
	AmountPaid    *decimal.Decimal // nil means paid in full
}

// Numberer hands out invoice numbers that stay unique across devices
type Numberer struct {
	node *snowflake.Node
}

// NewNumberer returns a Numberer for the given device node id (0-1023)
func NewNumberer(nodeID int64) (*Numberer, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("invoice numbers: %w", err)
	}
	return &Numberer{node: node}, nil
}

// Next returns a fresh invoice number such as FAC-1790011223344556677
func (n *Numberer) Next() string {
	return "FAC-" + n.node.Generate().String()
}

// NewSale validates a cart and turns it into a PendingSale with a fresh correlation id.
func NewSale(numbers *Numberer, cart Cart, now time.Time) (PendingSale, error) {
	if len(cart.Items) == 0 {
		return PendingSale{}, ErrEmptyCart
	}
	customer := strings.ToUpper(strings.TrimSpace(cart.CustomerName))
	if customer == "" {
		return PendingSale{}, ErrCustomerRequired
	}

	total := decimal.Zero
	items := make([]SaleItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" || it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return PendingSale{}, fmt.Errorf("%w: %q x%d", ErrInvalidItem, it.Name, it.Quantity)
		}
		total = total.Add(it.Subtotal())
		items = append(items, it)
	}

	paid := total
	if cart.AmountPaid != nil {
		paid = *cart.AmountPaid
	}
	if paid.IsNegative() {
		return PendingSale{}, ErrNegativePayment
	}
	if paid.GreaterThan(total) {
		return PendingSale{}, fmt.Errorf("%w: paid %s, total %s", ErrPaidExceedsTotal, paid, total)
	}

	return PendingSale{
		CorrelationID: uuid.NewString(),
		InvoiceNumber: numbers.Next(),
		CustomerName:  customer,
		CustomerPhone: strings.TrimSpace(cart.CustomerPhone),
		Items:         items,
		TotalAmount:   total,
		AmountPaid:    paid,
		Status:        model.PaymentStatus(total, paid),
		CreatedAt:     now.UTC(),
	}, nil
}

// Entry is a queued sale plus its delivery history
type Entry struct {
	Sale          PendingSale `json:"sale"`
	EnqueuedAt    time.Time   `json:"enqueued_at"`
	Attempts      int         `json:"attempts"`
	LastError     string      `json:"last_error,omitempty"`
	LastAttemptAt *time.Time  `json:"last_attempt_at,omitempty"`
}
