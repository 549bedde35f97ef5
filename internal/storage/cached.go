package storage

import (
	"context"
	"errors"

	"invoicer/internal/cache"
)

// CachedStore serves reads from an in-process cache and writes through to
// the wrapped store.
type CachedStore struct {
	next  BlobStore
	cache cache.Cache[Blob]
}

func NewCachedStore(next BlobStore, c cache.Cache[Blob]) *CachedStore {
	return &CachedStore{next: next, cache: c}
}

func (s *CachedStore) Get(ctx context.Context, key string) (Blob, error) {
	if b, ok := s.cache.Get(key); ok {
		return b, nil
	}
	b, err := s.next.Get(ctx, key)
	if err != nil {
		return Blob{}, err
	}
	s.cache.Set(key, b)
	return b, nil
}

func (s *CachedStore) Put(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	v, err := s.next.Put(ctx, key, data, expectedVersion)
	if err != nil {
		// Another writer moved the key; the cached copy is stale.
		if errors.Is(err, ErrVersionConflict) {
			s.cache.Delete(key)
		}
		return 0, err
	}
	s.cache.Set(key, Blob{Data: append([]byte(nil), data...), Version: v})
	return v, nil
}
