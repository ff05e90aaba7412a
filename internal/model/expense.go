package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseCategory enum constants
const (
	ExpenseRent        = "RENT"
	ExpenseElectricity = "ELECTRICITY"
	ExpenseTransport   = "TRANSPORT"
	ExpenseMerchandise = "MERCHANDISE"
	ExpenseSalary      = "SALARY"
	ExpenseOther       = "OTHER"
)

// Expense is an operating cost recorded by a shop admin
type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Category    string          `gorm:"type:varchar(20);not null;default:'OTHER'" json:"category"`
	Date        time.Time       `gorm:"index" json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}
