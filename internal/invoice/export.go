package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
)

// Format names accepted by Export and Import.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	// FormatXLSX is accepted by Export and produces CSV.
	FormatXLSX = "xlsx"
)

const (
	MimeJSON = "application/json"
	MimeCSV  = "text/csv"
)

// ExportResult is a rendered export ready to be written to a file.
type ExportResult struct {
	Data     []byte
	Filename string
	MimeType string
	Count    int
}

// Export renders the invoices matching filters as json or csv. It fails with
// ErrNoData when nothing matches.
func (e *Engine) Export(ctx context.Context, format string, filters core.Filters) (ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatJSON, FormatCSV, FormatXLSX:
	default:
		return ExportResult{}, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}

	invoices, err := e.List(ctx, filters)
	if err != nil {
		return ExportResult{}, err
	}
	if len(invoices) == 0 {
		return ExportResult{}, core.ErrNoData
	}

	stamp := e.today().String()
	var res ExportResult
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(invoices, "", "  ")
		if err != nil {
			return ExportResult{}, fmt.Errorf("encode json export: %w", err)
		}
		res = ExportResult{Data: data, Filename: "invoices_" + stamp + ".json", MimeType: MimeJSON}
	default:
		lookup, err := e.clientLookup(ctx)
		if err != nil {
			return ExportResult{}, err
		}
		res = ExportResult{Data: encodeCSV(invoices, lookup), Filename: "invoices_" + stamp + ".csv", MimeType: MimeCSV}
	}
	res.Count = len(invoices)

	e.logger.InfoContext(ctx, "Export completed",
		applog.FieldOperation, applog.OpExport,
		applog.FieldFormat, format,
		applog.FieldCount, res.Count)
	return res, nil
}

// clientLookup snapshots the client collection for row rendering.
func (e *Engine) clientLookup(ctx context.Context) (func(string) (core.Client, bool), error) {
	clients, err := e.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]core.Client, len(clients))
	for _, c := range clients {
		byID[c.ID] = c
	}
	return func(id string) (core.Client, bool) {
		c, ok := byID[id]
		return c, ok
	}, nil
}

// MirrorRows renders every stored invoice in CSV column order. Used to
// rebuild external mirrors.
func (e *Engine) MirrorRows(ctx context.Context) ([][]string, error) {
	invoices, err := e.loadInvoices(ctx)
	if err != nil {
		return nil, err
	}
	lookup, err := e.clientLookup(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, Row(inv, lookup))
	}
	return rows, nil
}

// MirrorRow renders one invoice in CSV column order.
func (e *Engine) MirrorRow(ctx context.Context, inv core.Invoice) ([]string, error) {
	lookup, err := e.clientLookup(ctx)
	if err != nil {
		return nil, err
	}
	return Row(inv, lookup), nil
}

// FormatFromPath infers the import format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
}
