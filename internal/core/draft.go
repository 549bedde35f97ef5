package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceDraft is the caller supplied part of a new invoice. Zero values mean
// "not supplied"; TaxRate and Design are pointers so an explicit zero rate can
// be told apart from a missing one.
type InvoiceDraft struct {
	Number   string           `json:"number,omitempty"`
	ClientID string           `json:"clientId,omitempty"`
	Date     Date             `json:"date"`
	DueDate  Date             `json:"dueDate"`
	Items    []LineItem       `json:"items"`
	TaxRate  *decimal.Decimal `json:"taxRate,omitempty"`
	Status   Status           `json:"status,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Terms    string           `json:"terms,omitempty"`
	Design   *Design          `json:"design,omitempty"`
}

// ApplyDraftDefaults builds an invoice from draft, filling every missing field
// from settings and today. The result has derived totals computed but no ID,
// number, user or timestamps.
func ApplyDraftDefaults(draft InvoiceDraft, settings Settings, today Date) (Invoice, error) {
	inv := Invoice{
		Number:   draft.Number,
		ClientID: draft.ClientID,
		Date:     draft.Date,
		DueDate:  draft.DueDate,
		Items:    append([]LineItem{}, draft.Items...),
		Status:   draft.Status,
		Notes:    draft.Notes,
		Terms:    draft.Terms,
	}

	if inv.Date.IsZero() {
		inv.Date = today
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.Date.AddDays(settings.DefaultDueDays)
	}
	if draft.TaxRate != nil {
		inv.TaxRate = *draft.TaxRate
	} else {
		inv.TaxRate = settings.DefaultTaxRate
	}
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	if draft.Design != nil {
		d := *draft.Design
		inv.Design = &d
	}

	CalculateTotals(&inv)
	if err := inv.Validate(); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// InvoicePatch is a shallow update. Nil fields are left untouched.
type InvoicePatch struct {
	Number   *string          `json:"number,omitempty"`
	ClientID *string          `json:"clientId,omitempty"`
	Date     *Date            `json:"date,omitempty"`
	DueDate  *Date            `json:"dueDate,omitempty"`
	Items    *[]LineItem      `json:"items,omitempty"`
	TaxRate  *decimal.Decimal `json:"taxRate,omitempty"`
	Status   *Status          `json:"status,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
	Terms    *string          `json:"terms,omitempty"`
	Design   *Design          `json:"design,omitempty"`
}

// Apply merges p onto inv. Nothing is modified when the patch is invalid.
// Totals are recomputed when the patch carries items or a tax rate.
func (p InvoicePatch) Apply(inv *Invoice, now time.Time) error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	next := *inv
	next.Items = append([]LineItem(nil), inv.Items...)
	if p.Number != nil {
		next.Number = *p.Number
	}
	if p.ClientID != nil {
		next.ClientID = *p.ClientID
	}
	if p.Date != nil {
		next.Date = *p.Date
	}
	if p.DueDate != nil {
		next.DueDate = *p.DueDate
	}
	if p.Items != nil {
		next.Items = append([]LineItem{}, (*p.Items)...)
	}
	if p.TaxRate != nil {
		next.TaxRate = *p.TaxRate
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.Terms != nil {
		next.Terms = *p.Terms
	}
	if p.Design != nil {
		d := *p.Design
		next.Design = &d
	}
	if p.Items != nil || p.TaxRate != nil {
		CalculateTotals(&next)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	next.ID = inv.ID
	next.CreatedAt = inv.CreatedAt
	next.UpdatedAt = now.UTC()
	*inv = next
	return nil
}

// StatusPatch is shorthand for a patch that only moves the status.
func StatusPatch(s Status) InvoicePatch {
	return InvoicePatch{Status: &s}
}
