package service

import (
	"context"
	"fmt"
	"time"

	"shopdesk/internal/model"
	"shopdesk/internal/repository"
)

const topProductsLimit = 5

type StatisticsService interface {
	GetDashboard(ctx context.Context, actor Actor, start, end time.Time) (model.DashboardSummary, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetDashboard aggregates the shop's invoices and expenses created between start and end
func (s *statisticsService) GetDashboard(ctx context.Context, actor Actor, start, end time.Time) (model.DashboardSummary, error) {
	if end.Before(start) {
		return model.DashboardSummary{}, fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}

	totals, err := s.statsRepo.GetInvoiceTotals(ctx, actor.OwnerID, start, end)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	expenses, err := s.statsRepo.GetExpenseTotal(ctx, actor.OwnerID, start, end)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	top, err := s.statsRepo.GetTopProducts(ctx, actor.OwnerID, start, end, topProductsLimit)
	if err != nil {
		return model.DashboardSummary{}, err
	}
	if top == nil {
		top = []model.ProductRanking{}
	}

	return model.DashboardSummary{
		InvoiceCount:    totals.InvoiceCount,
		DebtCount:       totals.DebtCount,
		SalesTotal:      totals.SalesTotal,
		Collected:       totals.Collected,
		OutstandingDebt: totals.OutstandingDebt,
		ExpensesTotal:   expenses,
		Net:             totals.Collected.Sub(expenses),
		TopProducts:     top,
		From:            start,
		To:              end,
	}, nil
}
