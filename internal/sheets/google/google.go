package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "invoicer/internal/log"
	"invoicer/internal/sheets"
)

var _ sheets.InvoiceMirror = (*Client)(nil)

const defaultRowCacheTTL = 5 * time.Minute

// Client mirrors invoices into one sheet of a spreadsheet. Rows are located
// by the value of column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *applog.Logger

	mu                 sync.Mutex
	rowIndex           map[string]int // key -> 1-based sheet row
	nextRow            int
	sheetID            *int64
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// Config selects the target sheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// ConfigFromEnv reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// and GOOGLE_APPLICATION_CREDENTIALS, in that order of preference.
func ConfigFromEnv(spreadsheetID, sheetName string) Config {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return Config{
		SpreadsheetID:   spreadsheetID,
		SheetName:       sheetName,
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: file,
	}
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var creds []byte
	switch {
	case cfg.CredentialsJSON != "":
		creds = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return NewWithOptions(ctx, cfg, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// NewWithOptions builds the client from explicit API options. Tests point it
// at a local endpoint.
func NewWithOptions(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = applog.Discard()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Invoices"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      cfg.SpreadsheetID,
		sheetName:          name,
		logger:             logger.WithComponent(applog.ComponentSheets),
		cacheValidDuration: defaultRowCacheTTL,
	}, nil
}

// a1 quotes the sheet name for A1 notation.
func (c *Client) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), cells)
}

// Upsert writes row over the row keyed by key, appending when absent.
func (c *Client) Upsert(ctx context.Context, key string, row []string) error {
	n, err := c.findRow(ctx, key)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{toInterfaces(row)}}

	if n > 0 {
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A"+strconv.Itoa(n)), vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			c.invalidateRowCache()
			return fmt.Errorf("update row %d: %w", n, err)
		}
		return nil
	}

	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.a1("A:A"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return fmt.Errorf("append row: %w", err)
	}

	c.mu.Lock()
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		c.rowIndex[key] = c.nextRow
		c.nextRow++
	}
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Row appended", applog.FieldNumber, key)
	return nil
}

// Delete removes the row keyed by key.
func (c *Client) Delete(ctx context.Context, key string) error {
	n, err := c.findRow(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		}},
	}
	// Rows below shift up; rebuild the index on next use.
	defer c.invalidateRowCache()

	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", n, err)
	}
	c.logger.DebugContext(ctx, "Row deleted", applog.FieldNumber, key)
	return nil
}

// Replace clears the sheet and writes header and rows starting at A1.
func (c *Client) Replace(ctx context.Context, header []string, rows [][]string) error {
	defer c.invalidateRowCache()

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.a1("A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toInterfaces(header))
	for _, r := range rows {
		values = append(values, toInterfaces(r))
	}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.a1("A1"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	c.logger.InfoContext(ctx, "Sheet rebuilt",
		applog.FieldSpreadsheet, c.spreadsheetID,
		applog.FieldCount, len(rows))
	return nil
}

// findRow returns the 1-based row holding key in column A, or 0. The header
// row is never matched.
func (c *Client) findRow(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		n := c.rowIndex[key]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read key column: %w", err)
	}
	index := buildRowIndex(resp.Values)

	c.mu.Lock()
	c.rowIndex = index
	c.nextRow = len(resp.Values) + 1
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	return index[key], nil
}

func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.sheetID != nil {
		id := *c.sheetID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			id := s.Properties.SheetId
			c.mu.Lock()
			c.sheetID = &id
			c.mu.Unlock()
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// buildRowIndex maps the first cell of every row below the header to its
// 1-based row number. Later duplicates do not override earlier rows.
func buildRowIndex(values [][]interface{}) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		key := strings.TrimSpace(fmt.Sprint(row[0]))
		if key == "" {
			continue
		}
		if _, ok := index[key]; !ok {
			index[key] = i + 1
		}
	}
	return index
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
