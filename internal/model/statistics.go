package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary aggregates sales, debt and expense totals of a shop over a period
type DashboardSummary struct {
	InvoiceCount    int64            `json:"invoice_count"`
	DebtCount       int64            `json:"debt_count"`
	SalesTotal      decimal.Decimal  `json:"sales_total" swaggertype:"string"`
	Collected       decimal.Decimal  `json:"collected" swaggertype:"string"`
	OutstandingDebt decimal.Decimal  `json:"outstanding_debt" swaggertype:"string"`
	ExpensesTotal   decimal.Decimal  `json:"expenses_total" swaggertype:"string"`
	Net             decimal.Decimal  `json:"net" swaggertype:"string"` // collected - expenses
	TopProducts     []ProductRanking `json:"top_products"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
}

// ProductRanking represents a product ranked by sold quantity
type ProductRanking struct {
	ProductName   string          `json:"product_name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value" swaggertype:"string"`
}

// Customer is one entry of the customer directory built from past invoices
type Customer struct {
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	InvoiceCount    int64           `json:"invoice_count"`
	OutstandingDebt decimal.Decimal `json:"outstanding_debt" swaggertype:"string"`
}
