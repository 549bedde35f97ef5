package invoice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
	"invoicer/internal/storage"
)

// errNoChange aborts a collection update that has nothing to write.
var errNoChange = errors.New("no change")

func isNoChange(err error) bool {
	return errors.Is(err, errNoChange)
}

func isConflict(err error) bool {
	return errors.Is(err, storage.ErrVersionConflict)
}

// UserProvider returns the id of the user acting in ctx, or "" when unknown.
type UserProvider func(ctx context.Context) string

// Engine owns invoice creation, totals, import and export over one store.
// Writes are serialized per engine; the store's version check protects
// against writers in other processes.
type Engine struct {
	invoices  *storage.Collection[[]core.Invoice]
	clients   *storage.Collection[[]core.Client]
	settings  *storage.Collection[core.Settings]
	templates *storage.Collection[[]core.Template]

	now      func() time.Time
	newID    func() string
	user     UserProvider
	notifier Notifier
	logger   *applog.Logger

	mu sync.Mutex
}

type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the uuid generator used for invoice and client ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

func WithUserProvider(p UserProvider) Option {
	return func(e *Engine) { e.user = p }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent(applog.ComponentInvoice)
		}
	}
}

// New creates an engine persisting into store.
func New(store storage.BlobStore, opts ...Option) *Engine {
	e := &Engine{
		invoices:  storage.NewCollection[[]core.Invoice](store, storage.KeyInvoices),
		clients:   storage.NewCollection[[]core.Client](store, storage.KeyClients),
		settings:  storage.NewCollection[core.Settings](store, storage.KeySettings),
		templates: storage.NewCollection[[]core.Template](store, storage.KeyTemplates),
		now:       time.Now,
		newID:     uuid.NewString,
		notifier:  nopNotifier{},
		logger:    applog.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() core.Date {
	return core.DateOf(e.now())
}

func (e *Engine) currentUser(ctx context.Context) string {
	if e.user != nil {
		if id := e.user(ctx); id != "" {
			return id
		}
	}
	return core.DefaultUserID
}

// notify delivers ev. Delivery failures are logged; the change is already
// persisted and stays so.
func (e *Engine) notify(ctx context.Context, ev Event) {
	ev.Timestamp = e.now().UTC()
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "Event notification failed",
			applog.FieldEvent, string(ev.Type),
			applog.FieldInvoiceID, ev.InvoiceID,
			applog.FieldError, err)
	}
}

func (e *Engine) loadInvoices(ctx context.Context) ([]core.Invoice, error) {
	list, _, _, err := e.invoices.Load(ctx)
	return list, err
}

func findInvoice(list []core.Invoice, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
