package backend

import (
	"context"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/cache"
	"invoicer/internal/invoice"
	"invoicer/internal/sheets"
	"invoicer/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the substrate an engine is built on plus the
// resources that must be released on shutdown.
type BackendResult struct {
	Store storage.BlobStore
	// Notifier is nil when no broker is configured.
	Notifier invoice.Notifier
	// Broker is the AMQP client behind Notifier, when one exists.
	Broker *amqp.Client
	// Caches cleans expired read-cache entries; nil when caching is off.
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the blob store and the event notifier.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateMirror builds the invoice mirror the worker writes to.
	CreateMirror(ctx context.Context, config Config) (sheets.InvoiceMirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory backend seed directory (optional)
	DataDirectory string

	// SQLite configuration
	SQLiteDBPath string

	// Read cache; a zero TTL disables it
	CacheTTL  time.Duration
	CacheSize int

	// AMQP configuration (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireBroker turns a failed broker connection into an error instead
	// of a warning.
	RequireBroker bool

	// Google Sheets mirror (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType represents the type of storage backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid checks if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
