package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatus(t *testing.T) {
	cases := []struct {
		name  string
		total string
		paid  string
		want  string
	}{
		{"fully paid", "5000", "5000", StatusPaid},
		{"partial", "10000", "4000", StatusDebt},
		{"nothing paid", "250.50", "0", StatusDebt},
		{"one cent short", "100.00", "99.99", StatusDebt},
		{"overpaid", "100", "150", StatusPaid},
		{"scale differs", "100.0", "100", StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PaymentStatus(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.paid))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBeforeSaveOverwritesStatus(t *testing.T) {
	inv := &Invoice{
		TotalAmount: decimal.NewFromInt(10000),
		AmountPaid:  decimal.NewFromInt(4000),
		Status:      StatusPaid,
	}

	require.NoError(t, inv.BeforeSave(nil))
	assert.Equal(t, StatusDebt, inv.Status)

	inv.AmountPaid = decimal.NewFromInt(10000)
	inv.Status = StatusDebt
	require.NoError(t, inv.BeforeSave(nil))
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestRemainingDebt(t *testing.T) {
	inv := Invoice{TotalAmount: decimal.NewFromInt(10000), AmountPaid: decimal.NewFromInt(4000)}
	assert.True(t, inv.RemainingDebt().Equal(decimal.NewFromInt(6000)))

	inv.AmountPaid = decimal.NewFromInt(12000)
	assert.True(t, inv.RemainingDebt().IsZero())
}
