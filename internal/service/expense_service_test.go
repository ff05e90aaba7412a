package service

import (
	"context"
	"testing"

	"shopdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenses(t *testing.T) {
	repo := newStubExpenseRepo()
	audit := &stubAuditRepo{}
	svc := NewExpenseService(repo, audit, stubTx{})
	ctx := context.Background()

	owner := uuid.New()
	admin := Actor{UserID: owner, OwnerID: owner, Role: model.RoleAdmin}
	employee := Actor{UserID: uuid.New(), OwnerID: owner, Role: model.RoleEmployee}

	_, err := svc.CreateExpense(ctx, employee, CreateExpenseRequest{Description: "Loyer", Amount: decimal.NewFromInt(50000)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateExpense(ctx, admin, CreateExpenseRequest{Description: "Loyer", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateExpense(ctx, admin, CreateExpenseRequest{Description: "Loyer", Amount: decimal.NewFromInt(1), Category: "PARTY"})
	assert.ErrorIs(t, err, ErrValidation)

	exp, err := svc.CreateExpense(ctx, admin, CreateExpenseRequest{Description: "Courant", Amount: decimal.NewFromInt(12000)})
	require.NoError(t, err)
	assert.Equal(t, model.ExpenseOther, exp.Category)

	_, err = svc.CreateExpense(ctx, admin, CreateExpenseRequest{Description: "Loyer mars", Amount: decimal.NewFromInt(50000), Category: "rent"})
	require.NoError(t, err)

	list, total, err := svc.GetExpenses(ctx, employee, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	rent, _, err := svc.GetExpenses(ctx, employee, "RENT", 1, 20)
	require.NoError(t, err)
	assert.Len(t, rent, 1)

	assert.ErrorIs(t, svc.DeleteExpense(ctx, employee, exp.ID), ErrForbidden)
	require.NoError(t, svc.DeleteExpense(ctx, admin, exp.ID))
	assert.ErrorIs(t, svc.DeleteExpense(ctx, admin, exp.ID), ErrNotFound)

	assert.Equal(t, []string{model.ActionCreateExpense, model.ActionCreateExpense, model.ActionDeleteExpense}, audit.actions())
}
