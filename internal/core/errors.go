package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("invoice not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoData            = errors.New("no invoices match the filters")
	ErrParse             = errors.New("parse error")
	ErrInvalidItem       = errors.New("invalid line item")
	ErrInvalidClient     = errors.New("invalid client")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrClientNotFound    = errors.New("client not found")
)

// RecordError describes a single import candidate that could not be stored.
// Record identifies the candidate by invoice number when known, otherwise by
// its position in the input.
type RecordError struct {
	Record  string `json:"record"`
	Message string `json:"message"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Record, e.Message)
}
