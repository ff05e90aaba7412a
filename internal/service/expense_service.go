package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopdesk/internal/model"
	"shopdesk/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateExpenseRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Amount      decimal.Decimal `json:"amount" binding:"gt=0" swaggertype:"string"`
	Category    string          `json:"category" binding:"omitempty,oneof=RENT ELECTRICITY TRANSPORT MERCHANDISE SALARY OTHER"`
	Date        *time.Time      `json:"date"`
}

type ExpenseResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"string"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	CreatedAt   string          `json:"created_at"`
}

// --- Interface ---

type ExpenseService interface {
	CreateExpense(ctx context.Context, actor Actor, req CreateExpenseRequest) (ExpenseResponse, error)
	GetExpenses(ctx context.Context, actor Actor, category string, page, limit int) ([]ExpenseResponse, int64, error)
	DeleteExpense(ctx context.Context, actor Actor, id string) error
}

type expenseService struct {
	expenseRepo repository.ExpenseRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewExpenseService(
	expenseRepo repository.ExpenseRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ExpenseService {
	return &expenseService{
		expenseRepo: expenseRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

var expenseCategories = map[string]bool{
	model.ExpenseRent:        true,
	model.ExpenseElectricity: true,
	model.ExpenseTransport:   true,
	model.ExpenseMerchandise: true,
	model.ExpenseSalary:      true,
	model.ExpenseOther:       true,
}

func toExpenseResponse(e *model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID.String(),
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

func (s *expenseService) CreateExpense(ctx context.Context, actor Actor, req CreateExpenseRequest) (ExpenseResponse, error) {
	if err := actor.requireAdmin(); err != nil {
		return ExpenseResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return ExpenseResponse{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if category == "" {
		category = model.ExpenseOther
	}
	if !expenseCategories[category] {
		return ExpenseResponse{}, fmt.Errorf("%w: unknown category %q", ErrValidation, req.Category)
	}

	expense := model.Expense{
		OwnerID:     actor.OwnerID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Category:    category,
		Date:        time.Now(),
	}
	if req.Date != nil && !req.Date.IsZero() {
		expense.Date = *req.Date
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, &expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionCreateExpense, expense.ID.String(), expense.Description,
			map[string]interface{}{"amount": expense.Amount, "category": expense.Category})
	})
	if err != nil {
		return ExpenseResponse{}, err
	}

	return toExpenseResponse(&expense), nil
}

func (s *expenseService) GetExpenses(ctx context.Context, actor Actor, category string, page, limit int) ([]ExpenseResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	category = strings.ToUpper(strings.TrimSpace(category))
	if category != "" && !expenseCategories[category] {
		return nil, 0, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}

	expenses, total, err := s.expenseRepo.List(ctx, actor.OwnerID, category, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	res := make([]ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		res = append(res, toExpenseResponse(&expenses[i]))
	}
	return res, total, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, actor Actor, id string) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	expenseID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid expense id", ErrValidation)
	}

	expense, err := s.expenseRepo.FindByID(ctx, actor.OwnerID, expenseID)
	if err != nil {
		return notFoundOr(err, "expense")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Delete(txCtx, actor.OwnerID, expense.ID); err != nil {
			return notFoundOr(err, "expense")
		}
		return recordAudit(txCtx, s.auditRepo, actor, model.ActionDeleteExpense, expense.ID.String(), expense.Description,
			map[string]interface{}{"amount": expense.Amount, "category": expense.Category})
	})
}
