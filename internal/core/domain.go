package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/validate"
)

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// DateLayout is the calendar-date wire format used in JSON and CSV.
const DateLayout = "2006-01-02"

// DefaultUserID is attached to records when no session user is available.
const DefaultUserID = "default-user"

type (
	Status string

	// Date is a calendar date without time of day, always in UTC.
	Date struct {
		time.Time
	}

	LineItem struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		Rate        decimal.Decimal `json:"rate"`
		Amount      decimal.Decimal `json:"amount"`
	}

	// Design is the visual preset an invoice is rendered with.
	Design struct {
		Template    string `json:"template" yaml:"template"`
		Color       string `json:"color" yaml:"color"`
		HeadingFont string `json:"headingFont" yaml:"headingFont"`
		BodyFont    string `json:"bodyFont" yaml:"bodyFont"`
		FontSize    string `json:"fontSize" yaml:"fontSize"`
	}

	Template struct {
		ID     string `json:"id" validate:"required"`
		Name   string `json:"name" validate:"required"`
		Design Design `json:"design"`
	}

	Invoice struct {
		ID        string          `json:"id"`
		Number    string          `json:"number"`
		UserID    string          `json:"userId,omitempty"`
		ClientID  string          `json:"clientId,omitempty"`
		Date      Date            `json:"date"`
		DueDate   Date            `json:"dueDate"`
		Items     []LineItem      `json:"items"`
		Subtotal  decimal.Decimal `json:"subtotal"`
		TaxRate   decimal.Decimal `json:"taxRate"`
		TaxAmount decimal.Decimal `json:"taxAmount"`
		Total     decimal.Decimal `json:"total"`
		Status    Status          `json:"status"`
		Notes     string          `json:"notes"`
		Terms     string          `json:"terms"`
		Design    *Design         `json:"design,omitempty"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}

	Address struct {
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip"`
		Country string `json:"country"`
	}

	Client struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId,omitempty"`
		Name      string    `json:"name" validate:"required"`
		Email     string    `json:"email" validate:"omitempty,email"`
		Phone     string    `json:"phone"`
		Address   Address   `json:"address"`
		TaxID     string    `json:"taxId,omitempty"`
		Notes     string    `json:"notes,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	CompanyInfo struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Email   string `json:"email" validate:"omitempty,email"`
		Phone   string `json:"phone"`
		Website string `json:"website" validate:"omitempty,url"`
	}

	// Settings drive numbering and the defaults applied to new invoices.
	Settings struct {
		AutoNumbering  bool            `json:"autoNumbering"`
		DefaultDueDays int             `json:"defaultDueDays" validate:"gte=0,lte=365"`
		DefaultTaxRate decimal.Decimal `json:"defaultTaxRate"`
		Currency       string          `json:"currency" validate:"required,len=3"`
		CompanyInfo    CompanyInfo     `json:"companyInfo"`
	}
)

func (li LineItem) MarshalJSON() ([]byte, error) {
	type plain LineItem
	return json.Marshal(struct {
		plain
		Quantity json.Number `json:"quantity"`
		Rate     json.Number `json:"rate"`
		Amount   json.Number `json:"amount"`
	}{plain(li), JSONNumber(li.Quantity), JSONNumber(li.Rate), JSONNumber(li.Amount)})
}

func (inv Invoice) MarshalJSON() ([]byte, error) {
	type plain Invoice
	return json.Marshal(struct {
		plain
		Subtotal  json.Number `json:"subtotal"`
		TaxRate   json.Number `json:"taxRate"`
		TaxAmount json.Number `json:"taxAmount"`
		Total     json.Number `json:"total"`
	}{plain(inv), JSONNumber(inv.Subtotal), JSONNumber(inv.TaxRate), JSONNumber(inv.TaxAmount), JSONNumber(inv.Total)})
}

func (s Settings) MarshalJSON() ([]byte, error) {
	type plain Settings
	return json.Marshal(struct {
		plain
		DefaultTaxRate json.Number `json:"defaultTaxRate"`
	}{plain(s), JSONNumber(s.DefaultTaxRate)})
}

// Statuses lists every valid invoice status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus normalizes s and returns ErrInvalidStatus when it is not one of
// the known values.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD and full RFC 3339 timestamps (the date part is kept).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Equal reports whether both values denote the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Validate checks item values; amounts are derived so they are not checked.
func (li LineItem) Validate() error {
	if li.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidItem)
	}
	if li.Rate.IsNegative() {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidItem)
	}
	if len(li.Description) > 500 {
		return fmt.Errorf("%w: description too long (max 500 characters)", ErrInvalidItem)
	}
	return nil
}

func (inv Invoice) Validate() error {
	if err := inv.Date.Validate(); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	if !inv.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, inv.Status)
	}
	if inv.TaxRate.IsNegative() {
		return errors.New("tax rate must not be negative")
	}
	for i, item := range inv.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

func (c Client) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClient, err)
	}
	return nil
}

func (s Settings) Validate() error {
	if s.DefaultTaxRate.IsNegative() {
		return errors.New("invalid settings: defaultTaxRate must not be negative")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// DefaultSettings mirrors the values a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		AutoNumbering:  true,
		DefaultDueDays: 30,
		DefaultTaxRate: decimal.RequireFromString("0.1"),
		Currency:       "USD",
		CompanyInfo:    CompanyInfo{Name: "Your Company Name"},
	}
}

// DefaultDesign is used when no "default" template is stored.
func DefaultDesign() Design {
	return Design{
		Template:    "professional",
		Color:       "blue",
		HeadingFont: "sans",
		BodyFont:    "sans",
		FontSize:    "medium",
	}
}

// DefaultTemplates returns the built-in template set.
func DefaultTemplates() []Template {
	return []Template{{ID: "default", Name: "Default Template", Design: DefaultDesign()}}
}

// DesignFor returns the design of the "default" template, falling back to
// DefaultDesign when it is absent.
func DesignFor(templates []Template) Design {
	for _, t := range templates {
		if t.ID == "default" {
			return t.Design
		}
	}
	return DefaultDesign()
}
