package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	applog "invoicer/internal/log"
	"invoicer/internal/sheets"
)

// SyncWorker mirrors invoice events into an InvoiceMirror. Messages carry
// identifiers only; the current record is read back from the engine.
type SyncWorker struct {
	engine *invoice.Engine
	mirror sheets.InvoiceMirror
	logger *applog.Logger

	mu sync.Mutex
	// numbers remembers the key each invoice was last mirrored under so a
	// renumbered invoice does not leave its old row behind.
	numbers map[string]string
}

func NewSyncWorker(engine *invoice.Engine, mirror sheets.InvoiceMirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		engine:  engine,
		mirror:  mirror,
		logger:  logger.WithComponent(applog.ComponentWorker),
		numbers: make(map[string]string),
	}
}

// HandleMessage is an amqp.Handler. Returning an error requeues the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.InvoiceEventMessage) error {
	ev := msg.Event()
	w.logger.InfoContext(ctx, "Processing invoice event",
		applog.FieldEvent, string(ev.Type),
		applog.FieldInvoiceID, ev.InvoiceID,
		applog.FieldNumber, ev.Number)

	switch ev.Type {
	case invoice.EventCreated, invoice.EventUpdated:
		return w.upsert(ctx, ev)
	case invoice.EventDeleted:
		return w.delete(ctx, ev)
	case invoice.EventImported:
		return w.FullSync(ctx)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", applog.FieldEvent, string(ev.Type))
		return nil
	}
}

func (w *SyncWorker) upsert(ctx context.Context, ev invoice.Event) error {
	inv, err := w.engine.Get(ctx, ev.InvoiceID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before we got here; the delete event cleans up.
		w.logger.DebugContext(ctx, "Invoice gone, skipping upsert", applog.FieldInvoiceID, ev.InvoiceID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load invoice %s: %w", ev.InvoiceID, err)
	}

	row, err := w.engine.MirrorRow(ctx, inv)
	if err != nil {
		return fmt.Errorf("render invoice %s: %w", inv.ID, err)
	}

	w.mu.Lock()
	previous, known := w.numbers[inv.ID]
	w.mu.Unlock()
	if !known && ev.Number != "" {
		previous, known = ev.Number, true
	}
	if known && previous != inv.Number {
		if err := w.mirror.Delete(ctx, previous); err != nil {
			return fmt.Errorf("remove renumbered row %s: %w", previous, err)
		}
	}

	if err := w.mirror.Upsert(ctx, inv.Number, row); err != nil {
		return fmt.Errorf("upsert row %s: %w", inv.Number, err)
	}

	w.mu.Lock()
	w.numbers[inv.ID] = inv.Number
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Invoice mirrored",
		applog.FieldInvoiceID, inv.ID,
		applog.FieldNumber, inv.Number)
	return nil
}

func (w *SyncWorker) delete(ctx context.Context, ev invoice.Event) error {
	w.mu.Lock()
	number, ok := w.numbers[ev.InvoiceID]
	delete(w.numbers, ev.InvoiceID)
	w.mu.Unlock()
	if !ok {
		number = ev.Number
	}
	if number == "" {
		w.logger.WarnContext(ctx, "Delete event without number, skipping", applog.FieldInvoiceID, ev.InvoiceID)
		return nil
	}

	if err := w.mirror.Delete(ctx, number); err != nil {
		return fmt.Errorf("delete row %s: %w", number, err)
	}
	w.logger.InfoContext(ctx, "Invoice row removed", applog.FieldNumber, number)
	return nil
}

// FullSync rewrites the mirror from the stored collection. It runs at
// startup and after bulk imports.
func (w *SyncWorker) FullSync(ctx context.Context) error {
	invoices, err := w.engine.List(ctx, core.Filters{})
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	rows, err := w.engine.MirrorRows(ctx)
	if err != nil {
		return fmt.Errorf("render invoices: %w", err)
	}

	if err := w.mirror.Replace(ctx, invoice.CSVHeader, rows); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}

	numbers := make(map[string]string, len(invoices))
	for _, inv := range invoices {
		numbers[inv.ID] = inv.Number
	}
	w.mu.Lock()
	w.numbers = numbers
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Mirror resynced",
		applog.FieldOperation, applog.OpSync,
		applog.FieldCount, len(rows))
	return nil
}
