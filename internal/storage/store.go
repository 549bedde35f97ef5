package storage

import (
	"context"
	"errors"
)

// Collection keys used by the invoice engine.
const (
	KeyInvoices  = "invoices"
	KeyClients   = "clients"
	KeySettings  = "invoiceSettings"
	KeyTemplates = "invoiceTemplates"
)

var ErrVersionConflict = errors.New("storage: version conflict")

// Blob is a stored value with the version it was read at. A key that was
// never written reads as an empty Blob with version 0.
type Blob struct {
	Data    []byte
	Version int64
}

// BlobStore is a keyed store with optimistic concurrency. Put succeeds only
// when the stored version still equals expectedVersion and returns the new
// version; otherwise it returns ErrVersionConflict.
type BlobStore interface {
	Get(ctx context.Context, key string) (Blob, error)
	Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error)
}
