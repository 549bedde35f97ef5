package cache

import (
	"context"
	"time"

	applog "invoicer/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that expire entries
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically removes expired entries from registered caches
type Manager struct {
	caches   []Cleaner
	interval time.Duration
	logger   *applog.Logger
}

// NewManager creates a cache manager sweeping every interval
func NewManager(interval time.Duration, logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentCache),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// CleanAll sweeps every registered cache once and returns the number of
// removed entries
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps until ctx is cancelled. It always returns nil so it can be
// used directly as an errgroup member.
func (m *Manager) Run(ctx context.Context) error {
	if m.interval <= 0 || len(m.caches) == 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", applog.FieldCount, n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
