package invoice

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"invoicer/internal/core"
)

// Column headers of the CSV layout. Import matches them exactly.
const (
	ColNumber      = "Invoice Number"
	ColDate        = "Date"
	ColDueDate     = "Due Date"
	ColStatus      = "Status"
	ColClientName  = "Client Name"
	ColClientEmail = "Client Email"
	ColSubtotal    = "Subtotal"
	ColTax         = "Tax"
	ColTotal       = "Total"
	ColNotes       = "Notes"
)

// CSVHeader is the fixed export column order.
var CSVHeader = []string{
	ColNumber, ColDate, ColDueDate, ColStatus, ColClientName,
	ColClientEmail, ColSubtotal, ColTax, ColTotal, ColNotes,
}

// Row renders inv in CSVHeader order. lookup resolves the client id to its
// record and may be nil.
func Row(inv core.Invoice, lookup func(id string) (core.Client, bool)) []string {
	var name, email string
	if lookup != nil && inv.ClientID != "" {
		if c, ok := lookup(inv.ClientID); ok {
			name, email = c.Name, c.Email
		}
	}
	return []string{
		inv.Number,
		inv.Date.String(),
		inv.DueDate.String(),
		string(inv.Status),
		name,
		email,
		inv.Subtotal.String(),
		inv.TaxAmount.String(),
		inv.Total.String(),
		inv.Notes,
	}
}

// encodeCSV writes the header and one line per invoice. Line breaks inside
// fields become spaces. Notes are always quoted; other fields only when they
// contain a separator or quote.
func encodeCSV(invoices []core.Invoice, lookup func(id string) (core.Client, bool)) []byte {
	var buf bytes.Buffer
	writeCSVRecord(&buf, CSVHeader, -1)
	notes := len(CSVHeader) - 1
	for _, inv := range invoices {
		writeCSVRecord(&buf, Row(inv, lookup), notes)
	}
	return buf.Bytes()
}

func writeCSVRecord(buf *bytes.Buffer, fields []string, alwaysQuote int) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		f = lineBreaks.Replace(f)
		if i == alwaysQuote || needsQuotes(f) {
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
			buf.WriteByte('"')
			continue
		}
		buf.WriteString(f)
	}
	buf.WriteByte('\n')
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func needsQuotes(f string) bool {
	if f == "" {
		return false
	}
	if strings.ContainsAny(f, ",\"") {
		return true
	}
	return f[0] == ' ' || f[0] == '\t' || f[len(f)-1] == ' ' || f[len(f)-1] == '\t'
}

// decodeCSV reads invoice candidates, one physical line per record. The
// first non-blank line is the header; data lines that do not parse or whose
// field count differs from it are dropped without error. Input with no data
// line fails with ErrParse.
func decodeCSV(content []byte) ([]core.ImportRecord, int, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))

	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) < 2 {
		return nil, 0, fmt.Errorf("%w: csv needs a header and at least one data row", core.ErrParse)
	}

	header, err := parseCSVLine(lines[0])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: csv header: %v", core.ErrParse, err)
	}
	header = trimAll(header)

	out := make([]core.ImportRecord, 0, len(lines)-1)
	dropped := 0
	for _, line := range lines[1:] {
		rec, err := parseCSVLine(line)
		if err != nil || len(rec) != len(header) {
			dropped++
			continue
		}
		rec = trimAll(rec)
		if strings.Join(rec, "") == "" {
			continue
		}
		out = append(out, mapCSVRow(header, rec))
	}
	return out, dropped, nil
}

// parseCSVLine splits a single line into fields. Quotes must be balanced
// within the line.
func parseCSVLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

func mapCSVRow(header, values []string) core.ImportRecord {
	var rec core.ImportRecord
	for i, h := range header {
		v := values[i]
		if v == "" {
			continue
		}
		switch h {
		case ColNumber:
			rec.Number = v
		case ColDate:
			rec.Date = v
		case ColDueDate:
			rec.DueDate = v
		case ColStatus:
			rec.Status = v
		case ColSubtotal:
			rec.Subtotal = core.LooseAmount(v)
		case ColTax:
			rec.Tax = core.LooseAmount(v)
		case ColTotal:
			rec.Total = core.LooseAmount(v)
		case ColNotes:
			rec.Notes = v
		case ColClientName:
			rec.ClientName = v
		case ColClientEmail:
			rec.ClientEmail = v
		}
	}
	return rec
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
