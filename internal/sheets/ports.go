package sheets

import "context"

// InvoiceMirror keeps an external tabular copy of the invoice collection,
// one row per invoice keyed by the first column.
type InvoiceMirror interface {
	// Upsert overwrites the row whose first cell equals key, or appends it.
	Upsert(ctx context.Context, key string, row []string) error
	// Delete removes the row whose first cell equals key. A missing row is
	// not an error.
	Delete(ctx context.Context, key string) error
	// Replace discards every row and writes header followed by rows.
	Replace(ctx context.Context, header []string, rows [][]string) error
}
