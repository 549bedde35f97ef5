package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"invoicer/internal/storage"
)

// Store keeps each collection as one row of the collections table.
type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers inside the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (storage.Blob, error) {
	var b storage.Blob
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM collections WHERE key = ?`, key,
	).Scan(&b.Data, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Blob{}, nil
	}
	if err != nil {
		return storage.Blob{}, fmt.Errorf("get %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	next := expectedVersion + 1

	var (
		res sql.Result
		err error
	)
	if expectedVersion == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (key, data, version, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, data, next, now)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE collections SET data = ?, version = ?, updated_at = ?
			 WHERE key = ? AND version = ?`,
			data, next, now, key, expectedVersion)
	}
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s expected version %d", storage.ErrVersionConflict, key, expectedVersion)
	}
	return next, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
