package cli

import (
	"fmt"
	"strconv"
	"strings"

	"shopdesk/internal/offline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// parseItem reads "name:unit_price:quantity[:product_id]"
func parseItem(raw string) (offline.SaleItem, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return offline.SaleItem{}, fmt.Errorf("item %q: expected name:price:quantity[:product_id]", raw)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return offline.SaleItem{}, fmt.Errorf("item %q: bad price: %w", raw, err)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return offline.SaleItem{}, fmt.Errorf("item %q: bad quantity: %w", raw, err)
	}
	item := offline.SaleItem{Name: strings.TrimSpace(parts[0]), UnitPrice: price, Quantity: qty}
	if len(parts) == 4 {
		item.ProductID = strings.TrimSpace(parts[3])
	}
	return item, nil
}

func addCartFlags(cmd *cobra.Command) {
	cmd.Flags().String("customer", "", "customer name (required)")
	cmd.Flags().String("phone", "", "customer phone")
	cmd.Flags().StringArray("item", nil, "cart line name:price:quantity[:product_id], repeatable")
	cmd.Flags().String("paid", "", "amount paid (defaults to the total)")
}

func cartFromFlags(cmd *cobra.Command) (offline.Cart, error) {
	customer, _ := cmd.Flags().GetString("customer")
	phone, _ := cmd.Flags().GetString("phone")
	rawItems, _ := cmd.Flags().GetStringArray("item")
	paidRaw, _ := cmd.Flags().GetString("paid")

	cart := offline.Cart{CustomerName: customer, CustomerPhone: phone}
	for _, raw := range rawItems {
		item, err := parseItem(raw)
		if err != nil {
			return offline.Cart{}, err
		}
		cart.Items = append(cart.Items, item)
	}
	if paidRaw != "" {
		paid, err := decimal.NewFromString(paidRaw)
		if err != nil {
			return offline.Cart{}, fmt.Errorf("bad --paid: %w", err)
		}
		cart.AmountPaid = &paid
	}
	return cart, nil
}
