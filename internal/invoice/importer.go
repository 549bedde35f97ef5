package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
)

// ImportResult reports the outcome of one import. A record counts as skipped
// when its number is already stored or appeared earlier in the same input.
type ImportResult struct {
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Errors   []core.RecordError `json:"errors"`
}

// Import parses content and stores every new invoice in it. Structural
// problems (ErrParse, ErrUnsupportedFormat) fail the whole call; problems
// with a single record are collected in the result and the rest of the
// batch proceeds.
func (e *Engine) Import(ctx context.Context, format string, content []byte) (ImportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	var (
		records []core.ImportRecord
		errs    []core.RecordError
		dropped int
		err     error
	)
	switch format {
	case FormatJSON:
		records, errs, err = decodeJSON(content)
	case FormatCSV:
		records, dropped, err = decodeCSV(content)
	default:
		return ImportResult{}, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return ImportResult{}, err
	}
	if dropped > 0 {
		e.logger.DebugContext(ctx, "CSV rows dropped on column count mismatch", applog.FieldCount, dropped)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.store(ctx, records)
	if err != nil {
		return ImportResult{}, err
	}
	res.Errors = append(errs, res.Errors...)
	if res.Errors == nil {
		res.Errors = []core.RecordError{}
	}

	e.logger.InfoContext(ctx, "Import completed",
		applog.NewFields().
			WithOperation(applog.OpImport).
			WithImport(format, res.Imported, res.Skipped, len(res.Errors)).
			ToSlice()...)
	if res.Imported > 0 {
		e.notify(ctx, Event{Type: EventImported, Count: res.Imported})
	}
	return res, nil
}

// ImportFile reads path and imports it using the format implied by its
// extension.
func (e *Engine) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return ImportResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ImportResult{}, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import file: %w", err)
	}
	return e.Import(ctx, format, content)
}

// decodeJSON accepts an array of invoices or a single invoice object. Each
// element is decoded on its own so one malformed record only costs itself.
func decodeJSON(content []byte) ([]core.ImportRecord, []core.RecordError, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf")))

	var raws []json.RawMessage
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid json: %v", core.ErrParse, err)
		}
	case len(trimmed) > 0 && trimmed[0] == '{':
		if !json.Valid(trimmed) {
			return nil, nil, fmt.Errorf("%w: invalid json object", core.ErrParse)
		}
		raws = []json.RawMessage{trimmed}
	default:
		return nil, nil, fmt.Errorf("%w: json import must be an array or an object", core.ErrParse)
	}

	records := make([]core.ImportRecord, 0, len(raws))
	var errs []core.RecordError
	for i, raw := range raws {
		var rec core.ImportRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			errs = append(errs, core.RecordError{Record: recordLabel(i, peekNumber(raw)), Message: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, errs, nil
}

// peekNumber extracts "number" from a record that failed full decoding.
func peekNumber(raw json.RawMessage) string {
	var probe struct {
		Number any `json:"number"`
	}
	if json.Unmarshal(raw, &probe) != nil {
		return ""
	}
	if s, ok := probe.Number.(string); ok {
		return s
	}
	return ""
}

func recordLabel(i int, number string) string {
	if number != "" {
		return number
	}
	return fmt.Sprintf("record %d", i+1)
}

// store cleans candidates and appends the new ones. Callers hold e.mu.
func (e *Engine) store(ctx context.Context, records []core.ImportRecord) (ImportResult, error) {
	settings, err := e.Settings(ctx)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := e.loadInvoices(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	cleans := func(rec core.ImportRecord) bool {
		_, err := core.CleanImported(rec, settings, e.now())
		return err == nil
	}
	refs := clientRefs(records, numberSet(existing), cleans)
	clientIDs, err := e.resolveClients(ctx, refs)
	if err != nil {
		return ImportResult{}, err
	}

	userID := e.currentUser(ctx)
	var res ImportResult
	_, err = e.invoices.Update(ctx, func(list *[]core.Invoice) error {
		res = ImportResult{}
		now := e.now()
		taken := numberSet(*list)

		for i, rec := range records {
			if rec.Number != "" && taken[rec.Number] {
				res.Skipped++
				continue
			}
			if id, ok := clientIDs[i]; ok {
				rec.ClientID = id
			}

			inv, err := core.CleanImported(rec, settings, now)
			if err != nil {
				res.Errors = append(res.Errors, core.RecordError{Record: recordLabel(i, rec.Number), Message: err.Error()})
				continue
			}
			if rec.Number == "" {
				inv.Number = uniqueNumber(inv.Number, taken)
			}
			inv.ID = e.newID()
			if inv.UserID == "" {
				inv.UserID = userID
			}

			*list = append(*list, inv)
			taken[inv.Number] = true
			res.Imported++
		}
		if res.Imported == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !isNoChange(err) {
		return ImportResult{}, fmt.Errorf("store imported invoices: %w", err)
	}
	return res, nil
}

// clientRefs collects the free text client references of the candidates
// that will be stored: not duplicates and accepted by cleans.
func clientRefs(records []core.ImportRecord, taken map[string]bool, cleans func(core.ImportRecord) bool) map[int]clientRef {
	refs := make(map[int]clientRef)
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		if rec.Number != "" && (taken[rec.Number] || seen[rec.Number]) {
			continue
		}
		if !cleans(rec) {
			continue
		}
		if rec.Number != "" {
			seen[rec.Number] = true
		}
		if rec.ClientID != "" || (rec.ClientName == "" && rec.ClientEmail == "") {
			continue
		}
		refs[i] = clientRef{name: rec.ClientName, email: rec.ClientEmail}
	}
	return refs
}

func numberSet(invoices []core.Invoice) map[string]bool {
	set := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		if inv.Number != "" {
			set[inv.Number] = true
		}
	}
	return set
}

// uniqueNumber appends -2, -3, ... to base until it is not taken.
func uniqueNumber(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
