package repository

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceTotals is the invoice side of the dashboard
type InvoiceTotals struct {
	InvoiceCount    int64
	DebtCount       int64
	SalesTotal      decimal.Decimal
	Collected       decimal.Decimal
	OutstandingDebt decimal.Decimal
}

type StatisticsRepository interface {
	GetInvoiceTotals(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (InvoiceTotals, error)
	GetExpenseTotal(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (decimal.Decimal, error)
	GetTopProducts(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.ProductRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetInvoiceTotals(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (InvoiceTotals, error) {
	var totals InvoiceTotals
	err := GetDB(ctx, r.db).Table("invoices").
		Select("COUNT(*) as invoice_count, "+
			"COUNT(*) FILTER (WHERE status = ?) as debt_count, "+
			"COALESCE(SUM(total_amount), 0) as sales_total, "+
			"COALESCE(SUM(amount_paid), 0) as collected, "+
			"COALESCE(SUM(GREATEST(total_amount - amount_paid, 0)), 0) as outstanding_debt", model.StatusDebt).
		Where("owner_id = ? AND created_at >= ? AND created_at <= ?", ownerID, start, end).
		Scan(&totals).Error
	if err != nil {
		return InvoiceTotals{}, fmt.Errorf("failed to query invoice totals: %w", err)
	}
	return totals, nil
}

func (r *statisticsRepository) GetExpenseTotal(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := GetDB(ctx, r.db).Table("expenses").
		Select("COALESCE(SUM(amount), 0) as total").
		Where("owner_id = ? AND date >= ? AND date <= ?", ownerID, start, end).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query expense total: %w", err)
	}
	return result.Total, nil
}

func (r *statisticsRepository) GetTopProducts(ctx context.Context, ownerID uuid.UUID, start, end time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	if err := GetDB(ctx, r.db).Table("invoice_items").
		Select("invoice_items.name as product_name, SUM(invoice_items.quantity) as total_quantity, " +
			"SUM(invoice_items.quantity * invoice_items.unit_price) as total_value").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.owner_id = ? AND invoices.created_at >= ? AND invoices.created_at <= ?", ownerID, start, end).
		Group("invoice_items.name").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return rankings, nil
}
