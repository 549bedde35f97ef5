package invoice

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventCreated  EventType = "invoice.created"
	EventUpdated  EventType = "invoice.updated"
	EventDeleted  EventType = "invoice.deleted"
	EventImported EventType = "invoices.imported"
)

// Event tells consumers that the invoice collection changed. Count is only
// set for EventImported, InvoiceID and Number for the single-invoice events.
type Event struct {
	Type      EventType
	InvoiceID string
	Number    string
	Count     int
	Timestamp time.Time
}

// Notifier receives engine events after the change has been persisted.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Notifiers fans an event out to every member and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }
