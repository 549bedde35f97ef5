package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxUpdateAttempts bounds the read-modify-write retries of Collection.Update.
const MaxUpdateAttempts = 5

// ErrTooManyConflicts is returned when Update keeps losing the version race.
var ErrTooManyConflicts = errors.New("storage: too many concurrent updates")

// Collection is a JSON encoded value of type T stored under one key.
type Collection[T any] struct {
	store BlobStore
	key   string
}

func NewCollection[T any](store BlobStore, key string) *Collection[T] {
	return &Collection[T]{store: store, key: key}
}

func (c *Collection[T]) Key() string {
	return c.key
}

// Load returns the decoded value and the version it was read at. A missing
// key yields the zero value of T; ok reports whether the key existed.
func (c *Collection[T]) Load(ctx context.Context) (value T, version int64, ok bool, err error) {
	blob, err := c.store.Get(ctx, c.key)
	if err != nil {
		return value, 0, false, fmt.Errorf("load %s: %w", c.key, err)
	}
	if len(blob.Data) == 0 {
		return value, blob.Version, blob.Version > 0, nil
	}
	if err := json.Unmarshal(blob.Data, &value); err != nil {
		return value, 0, false, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return value, blob.Version, true, nil
}

// Save writes value if the stored version is still expectedVersion.
func (c *Collection[T]) Save(ctx context.Context, value T, expectedVersion int64) (int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", c.key, err)
	}
	v, err := c.store.Put(ctx, c.key, data, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", c.key, err)
	}
	return v, nil
}

// Update runs fn on the current value and saves the result. On a version
// conflict the value is re-read and fn runs again, up to MaxUpdateAttempts
// times. An error from fn aborts without writing.
func (c *Collection[T]) Update(ctx context.Context, fn func(value *T) error) (T, error) {
	var zero T
	for attempt := 0; attempt < MaxUpdateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, version, _, err := c.Load(ctx)
		if err != nil {
			return zero, err
		}
		if err := fn(&value); err != nil {
			return zero, err
		}

		_, err = c.Save(ctx, value, version)
		if errors.Is(err, ErrVersionConflict) {
			continue
		}
		if err != nil {
			return zero, err
		}
		return value, nil
	}
	return zero, fmt.Errorf("update %s: %w", c.key, ErrTooManyConflicts)
}
