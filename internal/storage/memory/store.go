package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	applog "invoicer/internal/log"
	"invoicer/internal/storage"
)

// Store is an in-process BlobStore. Data lives as long as the process.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]storage.Blob
}

func New() *Store {
	return &Store{blobs: make(map[string]storage.Blob)}
}

// NewFromDir returns a store seeded with every <dir>/<key>.json file. Files
// that are not valid JSON are skipped with a warning.
func NewFromDir(dir string, logger *applog.Logger) (*Store, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	s := New()

	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list seed files: %w", err)
	}
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file %s: %w", path, err)
		}
		if !json.Valid(data) {
			logger.Warn("Skipping seed file with invalid JSON", "path", path)
			continue
		}
		key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s.blobs[key] = storage.Blob{Data: data, Version: 1}
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, key string) (storage.Blob, error) {
	if err := ctx.Err(); err != nil {
		return storage.Blob{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.blobs[key]
	return storage.Blob{Data: append([]byte(nil), b.Data...), Version: b.Version}, nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.blobs[key].Version
	if current != expectedVersion {
		return 0, fmt.Errorf("%w: %s at version %d, expected %d", storage.ErrVersionConflict, key, current, expectedVersion)
	}
	next := current + 1
	s.blobs[key] = storage.Blob{Data: append([]byte(nil), data...), Version: next}
	return next, nil
}

// Keys lists the stored keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	return keys
}
