package invoice

import (
	"context"
	"fmt"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
)

// Create stores a new invoice built from draft and returns it.
func (e *Engine) Create(ctx context.Context, draft core.InvoiceDraft) (core.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	settings, err := e.Settings(ctx)
	if err != nil {
		return core.Invoice{}, err
	}

	inv, err := core.ApplyDraftDefaults(draft, settings, e.today())
	if err != nil {
		return core.Invoice{}, err
	}
	if inv.Design == nil {
		templates, err := e.Templates(ctx)
		if err != nil {
			return core.Invoice{}, err
		}
		d := core.DesignFor(templates)
		inv.Design = &d
	}

	now := e.now().UTC()
	inv.ID = e.newID()
	inv.UserID = e.currentUser(ctx)
	inv.CreatedAt = now
	inv.UpdatedAt = now

	_, err = e.invoices.Update(ctx, func(list *[]core.Invoice) error {
		inv.Number = draft.Number
		if inv.Number == "" && settings.AutoNumbering {
			inv.Number = NextNumber(*list, inv.Date.Year())
		}
		*list = append(*list, inv)
		return nil
	})
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	e.logger.InfoContext(ctx, "Invoice created",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithInvoice(inv.ID, inv.Number, string(inv.Status)).
			With(applog.FieldTotal, inv.Total.String()).
			ToSlice()...)
	e.notify(ctx, Event{Type: EventCreated, InvoiceID: inv.ID, Number: inv.Number})
	return inv, nil
}

// NextNumber returns the next auto number for year: the count of invoices
// dated in that year plus one, skipping numbers already taken.
func NextNumber(invoices []core.Invoice, year int) string {
	taken := make(map[string]bool, len(invoices))
	seq := 1
	for _, inv := range invoices {
		taken[inv.Number] = true
		if inv.Date.Year() == year {
			seq++
		}
	}
	for {
		n := fmt.Sprintf("INV-%d-%04d", year, seq)
		if !taken[n] {
			return n
		}
		seq++
	}
}

// Update merges patch onto the invoice with the given id.
func (e *Engine) Update(ctx context.Context, id string, patch core.InvoicePatch) (core.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.update(ctx, id, patch)
}

func (e *Engine) update(ctx context.Context, id string, patch core.InvoicePatch) (core.Invoice, error) {
	var updated core.Invoice
	_, err := e.invoices.Update(ctx, func(list *[]core.Invoice) error {
		i := findInvoice(*list, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		if err := patch.Apply(&(*list)[i], e.now()); err != nil {
			return err
		}
		updated = (*list)[i]
		return nil
	})
	if err != nil {
		return core.Invoice{}, err
	}

	e.logger.InfoContext(ctx, "Invoice updated",
		applog.NewFields().
			WithOperation(applog.OpUpdate).
			WithInvoice(updated.ID, updated.Number, string(updated.Status)).
			ToSlice()...)
	e.notify(ctx, Event{Type: EventUpdated, InvoiceID: updated.ID, Number: updated.Number})
	return updated, nil
}

// SetStatus moves an invoice to status. Any transition between the five
// statuses is allowed.
func (e *Engine) SetStatus(ctx context.Context, id string, status core.Status) (core.Invoice, error) {
	if !status.Valid() {
		return core.Invoice{}, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	return e.Update(ctx, id, core.StatusPatch(status))
}

// Delete removes the invoice and returns it.
func (e *Engine) Delete(ctx context.Context, id string) (core.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed core.Invoice
	_, err := e.invoices.Update(ctx, func(list *[]core.Invoice) error {
		i := findInvoice(*list, id)
		if i < 0 {
			return fmt.Errorf("%w: %s", core.ErrNotFound, id)
		}
		removed = (*list)[i]
		*list = append((*list)[:i], (*list)[i+1:]...)
		return nil
	})
	if err != nil {
		return core.Invoice{}, err
	}

	e.logger.InfoContext(ctx, "Invoice deleted",
		applog.NewFields().
			WithOperation(applog.OpDelete).
			WithInvoice(removed.ID, removed.Number, "").
			ToSlice()...)
	e.notify(ctx, Event{Type: EventDeleted, InvoiceID: removed.ID, Number: removed.Number})
	return removed, nil
}

// Get returns the invoice with the given id.
func (e *Engine) Get(ctx context.Context, id string) (core.Invoice, error) {
	list, err := e.loadInvoices(ctx)
	if err != nil {
		return core.Invoice{}, err
	}
	if i := findInvoice(list, id); i >= 0 {
		return list[i], nil
	}
	return core.Invoice{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
}

// GetByNumber returns the first invoice carrying number.
func (e *Engine) GetByNumber(ctx context.Context, number string) (core.Invoice, error) {
	list, err := e.loadInvoices(ctx)
	if err != nil {
		return core.Invoice{}, err
	}
	for _, inv := range list {
		if inv.Number == number {
			return inv, nil
		}
	}
	return core.Invoice{}, fmt.Errorf("%w: number %s", core.ErrNotFound, number)
}

// List returns the stored invoices matching filters in insertion order.
func (e *Engine) List(ctx context.Context, filters core.Filters) ([]core.Invoice, error) {
	list, err := e.loadInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return filters.Apply(list), nil
}

// MarkOverdue moves every sent invoice whose due date is before today to
// overdue and returns the changed invoices.
func (e *Engine) MarkOverdue(ctx context.Context, today core.Date) ([]core.Invoice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var changed []core.Invoice
	_, err := e.invoices.Update(ctx, func(list *[]core.Invoice) error {
		changed = changed[:0]
		for i := range *list {
			inv := &(*list)[i]
			if inv.Status != core.StatusSent || inv.DueDate.IsZero() || !inv.DueDate.Before(today) {
				continue
			}
			if err := core.StatusPatch(core.StatusOverdue).Apply(inv, e.now()); err != nil {
				return fmt.Errorf("invoice %s: %w", inv.ID, err)
			}
			changed = append(changed, *inv)
		}
		if len(changed) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !isNoChange(err) {
		return nil, err
	}

	for _, inv := range changed {
		e.notify(ctx, Event{Type: EventUpdated, InvoiceID: inv.ID, Number: inv.Number})
	}
	if len(changed) > 0 {
		e.logger.InfoContext(ctx, "Invoices marked overdue", applog.FieldCount, len(changed))
	}
	return changed, nil
}

// Statistics summarises all stored invoices.
func (e *Engine) Statistics(ctx context.Context) (core.Statistics, error) {
	invoices, err := e.loadInvoices(ctx)
	if err != nil {
		return core.Statistics{}, err
	}
	clients, _, _, err := e.clients.Load(ctx)
	if err != nil {
		return core.Statistics{}, err
	}
	return core.ComputeStatistics(invoices, len(clients)), nil
}

// MonthlyRevenue returns paid revenue per month of year.
func (e *Engine) MonthlyRevenue(ctx context.Context, year int) ([]core.MonthRevenue, error) {
	invoices, err := e.loadInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return core.ComputeMonthlyRevenue(invoices, year), nil
}
