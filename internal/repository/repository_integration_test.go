//go:build integration

// Run with: go test -tags integration ./internal/repository/...
package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"shopdesk/internal/database"
	"shopdesk/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("shopdesk_test"),
		tcPostgres.WithUsername("shopdesk"),
		tcPostgres.WithPassword("shopdesk"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewConnection(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func debtInvoice(owner uuid.UUID, number string, correlation *uuid.UUID) *model.Invoice {
	return &model.Invoice{
		OwnerID:       owner,
		InvoiceNumber: number,
		CorrelationID: correlation,
		CustomerName:  "MOUSSA",
		Items: []model.InvoiceItem{
			{Name: "Riz 25kg", UnitPrice: decimal.NewFromInt(15000), Quantity: 1},
		},
		TotalAmount: decimal.NewFromInt(15000),
		AmountPaid:  decimal.NewFromInt(5000),
		Status:      model.StatusPaid, // contradicts the amounts on purpose
	}
}

func TestInvoiceRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	invoices := NewInvoiceRepository(db)
	tx := NewTransactionManager(db)
	owner := uuid.New()
	correlation := uuid.New()

	inv := debtInvoice(owner, "FAC-1", &correlation)
	require.NoError(t, invoices.Create(ctx, inv))

	stored, err := invoices.FindByID(ctx, owner, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDebt, stored.Status)
	assert.Len(t, stored.Items, 1)

	dup := debtInvoice(owner, "FAC-1", &correlation)
	err = invoices.Create(ctx, dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	replayed, err := invoices.FindByCorrelation(ctx, owner, correlation)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, replayed.ID)

	// same correlation id under another shop is a different sale
	require.NoError(t, invoices.Create(ctx, debtInvoice(uuid.New(), "FAC-1", &correlation)))

	err = tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := invoices.FindByIDForUpdate(txCtx, owner, inv.ID)
		if err != nil {
			return err
		}
		locked.AmountPaid = locked.AmountPaid.Add(decimal.NewFromInt(10000))
		locked.Status = model.StatusDebt
		return invoices.UpdatePayment(txCtx, locked)
	})
	require.NoError(t, err)

	settled, err := invoices.FindByID(ctx, owner, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, settled.Status)
	assert.True(t, settled.AmountPaid.Equal(decimal.NewFromInt(15000)))

	walkIn := debtInvoice(owner, "FAC-2", nil)
	walkIn.CustomerName = model.WalkInCustomer
	require.NoError(t, invoices.Create(ctx, walkIn))
	require.NoError(t, invoices.Create(ctx, debtInvoice(owner, "FAC-3", nil)))

	customers, err := invoices.Customers(ctx, owner)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "MOUSSA", customers[0].Name)
	assert.EqualValues(t, 2, customers[0].InvoiceCount)
	assert.True(t, customers[0].OutstandingDebt.Equal(decimal.NewFromInt(10000)))

	list, total, err := invoices.List(ctx, owner, InvoiceFilter{Status: model.StatusDebt, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, list, 2)

	require.NoError(t, invoices.Delete(ctx, owner, inv.ID))
	_, err = invoices.FindByID(ctx, owner, inv.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, invoices.Delete(ctx, owner, inv.ID), gorm.ErrRecordNotFound)
}

func TestProductRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	products := NewProductRepository(db)
	owner := uuid.New()

	p := &model.Product{OwnerID: owner, Name: "Huile 1L", Price: decimal.NewFromInt(1200), Stock: 10}
	require.NoError(t, products.Create(ctx, p))
	require.NoError(t, products.Create(ctx, &model.Product{OwnerID: owner, Name: "Sucre", Price: decimal.NewFromInt(800), Stock: 3}))

	require.NoError(t, products.AdjustStock(ctx, owner, p.ID, -4))
	got, err := products.FindByID(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)

	// writes under another shop touch nothing
	require.NoError(t, products.AdjustStock(ctx, uuid.New(), p.ID, 50))
	require.NoError(t, products.SetStock(ctx, uuid.New(), p.ID, 99))
	got, err = products.FindByID(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)

	require.NoError(t, products.SetStock(ctx, owner, p.ID, 0))
	got, err = products.FindByID(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	found, total, err := products.List(ctx, owner, 1, 10, "huile")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "Huile 1L", found[0].Name)

	_, err = products.FindByID(ctx, uuid.New(), p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, products.Delete(ctx, owner, p.ID))
	_, total, err = products.List(ctx, owner, 1, 10, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestStatisticsRepository_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	owner := uuid.New()
	invoices := NewInvoiceRepository(db)
	stats := NewStatisticsRepository(db)

	require.NoError(t, invoices.Create(ctx, debtInvoice(owner, "FAC-10", nil)))
	paid := debtInvoice(owner, "FAC-11", nil)
	paid.AmountPaid = paid.TotalAmount
	require.NoError(t, invoices.Create(ctx, paid))

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	totals, err := stats.GetInvoiceTotals(ctx, owner, start, end)
	require.NoError(t, err)
	assert.EqualValues(t, 2, totals.InvoiceCount)
	assert.EqualValues(t, 1, totals.DebtCount)
	assert.True(t, totals.SalesTotal.Equal(decimal.NewFromInt(30000)))
	assert.True(t, totals.OutstandingDebt.Equal(decimal.NewFromInt(10000)))
}
