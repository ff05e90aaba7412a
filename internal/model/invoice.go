package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment status values. Derived from the amounts, never set by callers.
const (
	StatusPaid = "PAID"
	StatusDebt = "DEBT"
)

// WalkInCustomer is used when a sale carries no customer name
const WalkInCustomer = "WALK-IN CUSTOMER"

// Invoice is a persisted sale
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:ux_invoice_owner_correlation" json:"owner_id"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null;index" json:"invoice_number"`
	CorrelationID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:ux_invoice_owner_correlation" json:"correlation_id"`
	CustomerName  string          `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string          `gorm:"type:varchar(50)" json:"customer_phone"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"amount_paid"`
	Status        string          `gorm:"type:varchar(10);not null;index" json:"status"` // PAID, DEBT
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceItem is a sold line. ProductID is nil for free-form lines.
type InvoiceItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID      *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Quantity       int             `gorm:"type:int;not null;default:1" json:"quantity"`
	StockShortfall int             `gorm:"type:int;not null;default:0" json:"stock_shortfall"` // units sold beyond available stock
}

// PaymentStatus is the only source of an invoice status: DEBT iff paid < total.
func PaymentStatus(total, paid decimal.Decimal) string {
	if paid.LessThan(total) {
		return StatusDebt
	}
	return StatusPaid
}

// ApplyPaymentStatus overwrites Status from the amounts
func (i *Invoice) ApplyPaymentStatus() {
	i.Status = PaymentStatus(i.TotalAmount, i.AmountPaid)
}

// RemainingDebt returns total minus paid, never below zero
func (i *Invoice) RemainingDebt() decimal.Decimal {
	rest := i.TotalAmount.Sub(i.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// BeforeSave recomputes the status on every create and update issued through gorm.
func (i *Invoice) BeforeSave(_ *gorm.DB) error {
	i.ApplyPaymentStatus()
	return nil
}
