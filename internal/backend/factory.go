package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/cache"
	applog "invoicer/internal/log"
	"invoicer/internal/sheets"
	gsheet "invoicer/internal/sheets/google"
	sheetsmem "invoicer/internal/sheets/memory"
	"invoicer/internal/storage"
	"invoicer/internal/storage/memory"
	"invoicer/internal/storage/sqlite"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   storage.BlobStore
		cleanup []CleanupFunc
	)
	switch config.Type {
	case SQLiteBackend:
		db, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store = db
		cleanup = append(cleanup, db.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		if config.DataDirectory == "" {
			store = memory.New()
		} else {
			mem, err := memory.NewFromDir(config.DataDirectory, f.logger)
			if err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
			store = mem
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", config.DataDirectory)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &BackendResult{Store: store}

	if config.CacheTTL > 0 {
		lru := cache.NewLRUCache[storage.Blob](config.CacheSize, config.CacheTTL)
		res.Store = storage.NewCachedStore(store, lru)
		res.Caches = cache.NewManager(cacheCleanupInterval, f.logger)
		res.Caches.Register(lru)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		switch {
		case err != nil && config.RequireBroker:
			runCleanup(cleanup)
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		case err != nil:
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err)
		default:
			res.Notifier = client
			res.Broker = client
			cleanup = append(cleanup, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error { return runCleanup(cleanup) }
	return res, nil
}

// CreateMirror implements Factory.CreateMirror. Without a spreadsheet id the
// mirror lives in memory.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.InvoiceMirror, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring in memory")
		return sheetsmem.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.ConfigFromEnv(config.GoogleSpreadsheetID, config.GoogleSheetName), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror",
		applog.FieldSpreadsheet, config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)
	return cli, nil
}

// runCleanup releases resources in reverse order of acquisition.
func runCleanup(fns []CleanupFunc) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
