package core

import (
	"errors"
	"testing"
	"time"
)

func TestApplyDraftDefaults(t *testing.T) {
	settings := DefaultSettings()
	today := NewDate(2025, 3, 10)

	t.Run("empty draft", func(t *testing.T) {
		inv, err := ApplyDraftDefaults(InvoiceDraft{}, settings, today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inv.Date.Equal(today) {
			t.Errorf("date = %s, want %s", inv.Date, today)
		}
		if want := NewDate(2025, 4, 9); !inv.DueDate.Equal(want) {
			t.Errorf("dueDate = %s, want %s", inv.DueDate, want)
		}
		if !inv.TaxRate.Equal(dec("0.1")) {
			t.Errorf("taxRate = %s, want 0.1", inv.TaxRate)
		}
		if inv.Status != StatusDraft {
			t.Errorf("status = %s, want draft", inv.Status)
		}
		if inv.Items == nil {
			t.Error("items should be an empty slice, not nil")
		}
	})

	t.Run("explicit zero tax rate is kept", func(t *testing.T) {
		zero := dec("0")
		inv, err := ApplyDraftDefaults(InvoiceDraft{
			Items:   []LineItem{{Description: "X", Quantity: dec("2"), Rate: dec("50")}},
			TaxRate: &zero,
		}, settings, today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inv.Total.Equal(dec("100")) {
			t.Errorf("total = %s, want 100", inv.Total)
		}
	})

	t.Run("supplied fields win", func(t *testing.T) {
		inv, err := ApplyDraftDefaults(InvoiceDraft{
			Date:    NewDate(2024, 12, 1),
			DueDate: NewDate(2024, 12, 15),
			Status:  StatusSent,
			Design:  &Design{Template: "modern"},
		}, settings, today)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !inv.DueDate.Equal(NewDate(2024, 12, 15)) || inv.Status != StatusSent {
			t.Errorf("got dueDate=%s status=%s", inv.DueDate, inv.Status)
		}
		if inv.Design == nil || inv.Design.Template != "modern" {
			t.Errorf("design = %+v", inv.Design)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := ApplyDraftDefaults(InvoiceDraft{Status: "archived"}, settings, today)
		if !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("error = %v, want ErrInvalidStatus", err)
		}
	})

	t.Run("negative quantity", func(t *testing.T) {
		_, err := ApplyDraftDefaults(InvoiceDraft{
			Items: []LineItem{{Quantity: dec("-1"), Rate: dec("1")}},
		}, settings, today)
		if !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("error = %v, want ErrInvalidItem", err)
		}
	})
}

func TestInvoicePatch_Apply(t *testing.T) {
	created := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	later := created.Add(time.Hour)

	base := func() Invoice {
		inv := Invoice{
			ID:        "id-1",
			Number:    "INV-2025-0001",
			Date:      NewDate(2025, 1, 1),
			DueDate:   NewDate(2025, 1, 31),
			Items:     []LineItem{{Description: "X", Quantity: dec("1"), Rate: dec("100")}},
			TaxRate:   dec("0.1"),
			Status:    StatusDraft,
			CreatedAt: created,
			UpdatedAt: created,
		}
		CalculateTotals(&inv)
		return inv
	}

	t.Run("items trigger recompute", func(t *testing.T) {
		inv := base()
		items := []LineItem{{Description: "Y", Quantity: dec("3"), Rate: dec("10")}}
		if err := (InvoicePatch{Items: &items}).Apply(&inv, later); err != nil {
			t.Fatal(err)
		}
		if !inv.Total.Equal(dec("33")) {
			t.Errorf("total = %s, want 33", inv.Total)
		}
		if !inv.UpdatedAt.Equal(later) || !inv.CreatedAt.Equal(created) {
			t.Errorf("timestamps: created=%s updated=%s", inv.CreatedAt, inv.UpdatedAt)
		}
	})

	t.Run("tax rate triggers recompute", func(t *testing.T) {
		inv := base()
		rate := dec("0.25")
		if err := (InvoicePatch{TaxRate: &rate}).Apply(&inv, later); err != nil {
			t.Fatal(err)
		}
		if !inv.Total.Equal(dec("125")) {
			t.Errorf("total = %s, want 125", inv.Total)
		}
	})

	t.Run("omitted fields retained", func(t *testing.T) {
		inv := base()
		notes := "thanks"
		if err := (InvoicePatch{Notes: &notes}).Apply(&inv, later); err != nil {
			t.Fatal(err)
		}
		if inv.Notes != "thanks" || inv.Number != "INV-2025-0001" || !inv.Total.Equal(dec("110")) {
			t.Errorf("unexpected invoice after patch: %+v", inv)
		}
	})

	t.Run("invalid status leaves invoice untouched", func(t *testing.T) {
		inv := base()
		before := inv
		notes := "changed"
		patch := InvoicePatch{Notes: &notes, Status: func() *Status { s := Status("archived"); return &s }()}
		err := patch.Apply(&inv, later)
		if !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("error = %v, want ErrInvalidStatus", err)
		}
		if inv.Notes != before.Notes || inv.Status != before.Status || !inv.UpdatedAt.Equal(before.UpdatedAt) {
			t.Errorf("invoice modified by rejected patch: %+v", inv)
		}
	})

	t.Run("status patch", func(t *testing.T) {
		inv := base()
		if err := StatusPatch(StatusPaid).Apply(&inv, later); err != nil {
			t.Fatal(err)
		}
		if inv.Status != StatusPaid {
			t.Errorf("status = %s", inv.Status)
		}
	})
}
