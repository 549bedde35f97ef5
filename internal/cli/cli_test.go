package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicer/internal/cli"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/storage/memory"
)

var fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newEngine() *invoice.Engine {
	return invoice.New(memory.New(), invoice.WithClock(func() time.Time { return fixedNow }))
}

func run(t *testing.T, engine *invoice.Engine, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest(engine, func() time.Time { return fixedNow })
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, engine *invoice.Engine, args ...string) string {
	t.Helper()
	out, err := run(t, engine, args...)
	require.NoError(t, err, "invoicer %v", args)
	return out
}

func createJSON(t *testing.T, engine *invoice.Engine, args ...string) core.Invoice {
	t.Helper()
	out := mustRun(t, engine, append([]string{"create", "--json"}, args...)...)
	var inv core.Invoice
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	return inv
}

func TestCreateCommand_JSON(t *testing.T) {
	engine := newEngine()
	inv := createJSON(t, engine,
		"--item", "Design: phase 1:2:50",
		"--tax-rate", "0.2",
		"--notes", "thanks")

	assert.Equal(t, "INV-2025-0001", inv.Number)
	assert.Equal(t, "2025-06-15", inv.Date.String())
	assert.Equal(t, "2025-07-15", inv.DueDate.String())
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Design: phase 1", inv.Items[0].Description)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, core.StatusDraft, inv.Status)
}

func TestCreateCommand_InvalidInput(t *testing.T) {
	engine := newEngine()

	_, err := run(t, engine, "create", "--item", "no-rate")
	assert.ErrorIs(t, err, core.ErrInvalidItem)

	_, err = run(t, engine, "create", "--status", "archived")
	assert.ErrorIs(t, err, core.ErrInvalidStatus)

	_, err = run(t, engine, "create", "--date", "15/06/2025")
	assert.Error(t, err)
}

func TestListAndShow(t *testing.T) {
	engine := newEngine()
	first := createJSON(t, engine, "--item", "A:1:10")
	createJSON(t, engine, "--item", "B:1:20", "--status", "paid")

	out := mustRun(t, engine, "list")
	assert.Contains(t, out, "INV-2025-0001")
	assert.Contains(t, out, "INV-2025-0002")
	assert.Contains(t, out, "2 invoice(s)")

	out = mustRun(t, engine, "list", "--status", "paid")
	assert.NotContains(t, out, "INV-2025-0001")
	assert.Contains(t, out, "1 invoice(s)")

	out = mustRun(t, engine, "show", "INV-2025-0001")
	assert.Contains(t, out, "Invoice INV-2025-0001")
	assert.Contains(t, out, first.ID)

	_, err := run(t, engine, "show", "INV-404")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateStatusDelete(t *testing.T) {
	engine := newEngine()
	inv := createJSON(t, engine, "--item", "A:1:10", "--notes", "original")

	out := mustRun(t, engine, "update", inv.Number, "--terms", "Net 15", "--json")
	var updated core.Invoice
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "Net 15", updated.Terms)
	assert.Equal(t, "original", updated.Notes, "flags not given stay unchanged")
	assert.True(t, updated.Total.Equal(inv.Total))

	out = mustRun(t, engine, "status", inv.ID, "PAID")
	assert.Contains(t, out, "is now")
	got, err := engine.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusPaid, got.Status)

	out = mustRun(t, engine, "delete", inv.Number)
	assert.Contains(t, out, "Deleted invoice "+inv.Number)
	_, err = engine.Get(context.Background(), inv.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestExportCommand(t *testing.T) {
	engine := newEngine()

	_, err := run(t, engine, "export", "--out", "-")
	assert.ErrorIs(t, err, core.ErrNoData)

	createJSON(t, engine, "--item", "A:1:10", "--notes", "hello, world")

	out := mustRun(t, engine, "export", "--format", "csv", "--out", "-")
	assert.Contains(t, out, "Invoice Number,Date,Due Date")
	assert.Contains(t, out, `"hello, world"`)

	path := filepath.Join(t.TempDir(), "out.json")
	out = mustRun(t, engine, "export", "--out", path)
	assert.Contains(t, out, "Exported 1 invoice(s)")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"number": "INV-2025-0001"`)

	_, err = run(t, engine, "export", "--format", "pdf", "--out", "-")
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestImportCommand(t *testing.T) {
	engine := newEngine()
	createJSON(t, engine, "--number", "DUP-1", "--item", "A:1:10")

	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"number":"NEW-1","date":"2025-01-02","subtotal":100,"tax":10},
		{"number":"DUP-1","date":"2025-01-03","subtotal":5}
	]`), 0o644))

	out := mustRun(t, engine, "import", path)
	assert.Contains(t, out, "Imported 1")
	assert.Contains(t, out, "skipped 1")

	// --format overrides the extension.
	txt := filepath.Join(t.TempDir(), "batch.txt")
	require.NoError(t, os.WriteFile(txt, []byte("Invoice Number,Date,Total\nCSV-1,2025-02-01,42\n"), 0o644))
	out = mustRun(t, engine, "import", txt, "--format", "csv", "--json")
	var res invoice.ImportResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Imported)

	_, err := run(t, engine, "import", txt)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestStatsCommand(t *testing.T) {
	engine := newEngine()
	createJSON(t, engine, "--item", "A:1:100", "--tax-rate", "0", "--status", "paid", "--date", "2025-03-10")
	createJSON(t, engine, "--item", "B:1:40", "--tax-rate", "0", "--status", "sent")

	out := mustRun(t, engine, "stats", "--json")
	var got struct {
		Total        int                 `json:"total"`
		TotalRevenue decimal.Decimal     `json:"totalRevenue"`
		Year         int                 `json:"year"`
		Monthly      []core.MonthRevenue `json:"monthly"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Total)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2025, got.Year)
	require.Len(t, got.Monthly, 12)
	assert.True(t, got.Monthly[2].Revenue.Equal(decimal.NewFromInt(100)))

	out = mustRun(t, engine, "stats")
	assert.Contains(t, out, "Invoice statistics")
	assert.Contains(t, out, "100.00 USD")
}

func TestOverdueCommand(t *testing.T) {
	engine := newEngine()
	late := createJSON(t, engine, "--item", "A:1:10", "--status", "sent",
		"--date", "2025-04-01", "--due", "2025-05-01")

	out := mustRun(t, engine, "overdue")
	assert.Contains(t, out, late.Number)

	out = mustRun(t, engine, "overdue")
	assert.Contains(t, out, "No invoices became overdue")
}

func TestClientCommands(t *testing.T) {
	engine := newEngine()

	_, err := run(t, engine, "client", "create")
	assert.Error(t, err, "--name is required")

	_, err = run(t, engine, "client", "create", "--name", "Acme", "--email", "not-an-email")
	assert.ErrorIs(t, err, core.ErrInvalidClient)

	out := mustRun(t, engine, "client", "create", "--name", "Acme", "--email", "ap@acme.test", "--city", "Turin", "--json")
	var c core.Client
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Turin", c.Address.City)

	inv := createJSON(t, engine, "--client", c.ID, "--item", "A:1:10")
	out = mustRun(t, engine, "show", inv.ID)
	assert.Contains(t, out, "Acme <ap@acme.test>")

	out = mustRun(t, engine, "client", "list")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "1 client(s)")
}

func TestSettingsCommands(t *testing.T) {
	engine := newEngine()

	out := mustRun(t, engine, "settings", "show")
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "Default Template")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
settings:
  autoNumbering: false
  currency: EUR
  defaultTaxRate: 22%
templates:
  - id: default
    name: House
`), 0o644))

	out = mustRun(t, engine, "settings", "load", path)
	assert.Contains(t, out, "Loaded settings and 1 template(s)")

	out = mustRun(t, engine, "settings", "show", "--json")
	var got struct {
		Settings  core.Settings   `json:"settings"`
		Templates []core.Template `json:"templates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.Settings.AutoNumbering)
	assert.Equal(t, "EUR", got.Settings.Currency)
	assert.True(t, got.Settings.DefaultTaxRate.Equal(decimal.RequireFromString("0.22")))
	require.Len(t, got.Templates, 1)
	assert.Equal(t, "House", got.Templates[0].Name)
}
