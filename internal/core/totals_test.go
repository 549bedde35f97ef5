package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name         string
		items        []LineItem
		taxRate      string
		wantSubtotal string
		wantTax      string
		wantTotal    string
	}{
		{
			name:         "single item with tax",
			items:        []LineItem{{Description: "X", Quantity: dec("2"), Rate: dec("50")}},
			taxRate:      "0.1",
			wantSubtotal: "100",
			wantTax:      "10",
			wantTotal:    "110",
		},
		{
			name: "several items no tax",
			items: []LineItem{
				{Description: "a", Quantity: dec("1.5"), Rate: dec("20")},
				{Description: "b", Quantity: dec("3"), Rate: dec("0.99")},
			},
			taxRate:      "0",
			wantSubtotal: "32.97",
			wantTax:      "0",
			wantTotal:    "32.97",
		},
		{
			name:         "no items",
			taxRate:      "0.2",
			wantSubtotal: "0",
			wantTax:      "0",
			wantTotal:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := Invoice{Items: tt.items, TaxRate: dec(tt.taxRate)}
			CalculateTotals(&inv)

			if !inv.Subtotal.Equal(dec(tt.wantSubtotal)) {
				t.Errorf("subtotal = %s, want %s", inv.Subtotal, tt.wantSubtotal)
			}
			if !inv.TaxAmount.Equal(dec(tt.wantTax)) {
				t.Errorf("taxAmount = %s, want %s", inv.TaxAmount, tt.wantTax)
			}
			if !inv.Total.Equal(dec(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", inv.Total, tt.wantTotal)
			}
			if !TotalsConsistent(inv) {
				t.Error("totals reported inconsistent right after calculation")
			}
		})
	}
}

func TestCalculateTotals_IgnoresSuppliedAmount(t *testing.T) {
	inv := Invoice{Items: []LineItem{{Quantity: dec("2"), Rate: dec("5"), Amount: dec("999")}}}
	CalculateTotals(&inv)

	if !inv.Items[0].Amount.Equal(dec("10")) {
		t.Fatalf("amount = %s, want 10", inv.Items[0].Amount)
	}
}

func TestTotalsConsistent_DetectsStaleTotal(t *testing.T) {
	inv := Invoice{Items: []LineItem{{Quantity: dec("1"), Rate: dec("10")}}, TaxRate: dec("0.1")}
	CalculateTotals(&inv)
	inv.Total = dec("500")

	if TotalsConsistent(inv) {
		t.Fatal("expected stale total to be reported")
	}
}
