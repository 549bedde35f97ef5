package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LooseAmount holds the raw text of an imported numeric field. It decodes
// from JSON numbers and strings alike; conversion happens in CleanImported.
type LooseAmount string

func (a *LooseAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = LooseAmount(s)
	default:
		*a = LooseAmount(b)
	}
	return nil
}

// ImportRecord is one candidate invoice read from an import file. Every field
// is optional; CleanImported turns it into a stored invoice.
type ImportRecord struct {
	Number    string      `json:"number"`
	UserID    string      `json:"userId"`
	ClientID  string      `json:"clientId"`
	Date      string      `json:"date"`
	DueDate   string      `json:"dueDate"`
	Status    string      `json:"status"`
	Items     []LineItem  `json:"items"`
	Subtotal  LooseAmount `json:"subtotal"`
	TaxRate   LooseAmount `json:"taxRate"`
	Tax       LooseAmount `json:"tax"`
	TaxAmount LooseAmount `json:"taxAmount"`
	Total     LooseAmount `json:"total"`
	Notes     string      `json:"notes"`
	Terms     string      `json:"terms"`
	Design    *Design     `json:"design"`
	CreatedAt *time.Time  `json:"createdAt"`

	// Free text client reference from CSV; resolved by the engine, never stored.
	ClientName  string `json:"-"`
	ClientEmail string `json:"-"`
}

// SyntheticNumber is the number given to imported records that carry none.
func SyntheticNumber(now time.Time) string {
	return fmt.Sprintf("IMP-%d", now.UnixMilli())
}

// CleanImported applies import defaults to rec. When rec has line items the
// derived totals are recomputed from them; otherwise the imported subtotal,
// tax and total are kept, with a missing total defaulting to subtotal + tax.
func CleanImported(rec ImportRecord, settings Settings, now time.Time) (Invoice, error) {
	inv := Invoice{
		Number:   rec.Number,
		UserID:   rec.UserID,
		ClientID: rec.ClientID,
		Items:    append([]LineItem{}, rec.Items...),
		Notes:    rec.Notes,
		Terms:    rec.Terms,
		Status:   StatusDraft,
	}
	if inv.Number == "" {
		inv.Number = SyntheticNumber(now)
	}

	if rec.Status != "" {
		st, err := ParseStatus(rec.Status)
		if err != nil {
			return Invoice{}, err
		}
		inv.Status = st
	}

	date, err := ParseDate(rec.Date)
	if err != nil {
		return Invoice{}, err
	}
	if date.IsZero() {
		date = DateOf(now)
	}
	inv.Date = date

	due, err := ParseDate(rec.DueDate)
	if err != nil {
		return Invoice{}, err
	}
	if due.IsZero() {
		due = date.AddDays(settings.DefaultDueDays)
	}
	inv.DueDate = due

	if rec.Design != nil {
		d := *rec.Design
		inv.Design = &d
	}

	subtotal, err := amountField("subtotal", rec.Subtotal)
	if err != nil {
		return Invoice{}, err
	}
	taxText := rec.TaxAmount
	if taxText == "" {
		taxText = rec.Tax
	}
	tax, err := amountField("tax", taxText)
	if err != nil {
		return Invoice{}, err
	}
	total, err := amountField("total", rec.Total)
	if err != nil {
		return Invoice{}, err
	}

	var rate *decimal.Decimal
	if rec.TaxRate != "" {
		r, err := amountField("taxRate", rec.TaxRate)
		if err != nil {
			return Invoice{}, err
		}
		rate = &r
	}

	if len(inv.Items) > 0 {
		inv.TaxRate = settings.DefaultTaxRate
		if rate != nil {
			inv.TaxRate = *rate
		}
		CalculateTotals(&inv)
	} else {
		inv.Subtotal = subtotal
		inv.TaxAmount = tax
		inv.Total = total
		if total.IsZero() {
			inv.Total = subtotal.Add(tax)
		}
		switch {
		case rate != nil:
			inv.TaxRate = *rate
		case subtotal.IsPositive():
			inv.TaxRate = tax.Div(subtotal)
		}
	}

	now = now.UTC()
	inv.CreatedAt = now
	if rec.CreatedAt != nil && !rec.CreatedAt.IsZero() {
		inv.CreatedAt = rec.CreatedAt.UTC()
	}
	inv.UpdatedAt = now

	if err := inv.Validate(); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func amountField(name string, v LooseAmount) (decimal.Decimal, error) {
	d, err := ParseAmount(string(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
