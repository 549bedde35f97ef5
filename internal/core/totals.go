package core

import "github.com/shopspring/decimal"

// CalculateTotals recomputes every derived monetary field of inv in place.
// Item amounts are never trusted from input.
func CalculateTotals(inv *Invoice) {
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Amount = inv.Items[i].Quantity.Mul(inv.Items[i].Rate)
		subtotal = subtotal.Add(inv.Items[i].Amount)
	}
	inv.Subtotal = subtotal
	inv.TaxAmount = subtotal.Mul(inv.TaxRate)
	inv.Total = subtotal.Add(inv.TaxAmount)
}

// TotalsConsistent reports whether the derived fields of inv match its items
// and tax rate.
func TotalsConsistent(inv Invoice) bool {
	check := inv
	check.Items = append([]LineItem(nil), inv.Items...)
	CalculateTotals(&check)
	return check.Subtotal.Equal(inv.Subtotal) &&
		check.TaxAmount.Equal(inv.TaxAmount) &&
		check.Total.Equal(inv.Total)
}
