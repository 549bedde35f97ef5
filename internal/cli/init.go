// Package cli holds the invoicer command tree and the bootstrap helpers
// shared by cmd/invoicer and cmd/invoicer-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invoicer/internal/backend"
	"invoicer/internal/config"
	"invoicer/internal/invoice"
	applog "invoicer/internal/log"
	"invoicer/internal/settings"
	"invoicer/internal/storage"
)

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	lc := applog.DefaultConfig()
	if cfg != nil {
		if level, err := applog.ParseLevel(cfg.LogLevel); err == nil {
			lc.Level = level
		}
		lc.Format = cfg.LogFormat
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment (and .env)
// and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EngineOptions tune OpenEngine for the calling binary.
type EngineOptions struct {
	// DisableCache reads every collection from the store. Long-running
	// processes that observe other writers set it.
	DisableCache bool
	// RequireBroker fails instead of warning when AMQP is unreachable.
	RequireBroker bool
}

// OpenEngine builds the storage substrate and notifier described by cfg and
// returns an engine over them. The caller owns res.Cleanup.
func OpenEngine(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts EngineOptions) (*invoice.Engine, *backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	if opts.DisableCache {
		bc.CacheTTL = 0
	}
	bc.RequireBroker = opts.RequireBroker

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, nil, err
	}

	engineOpts := []invoice.Option{invoice.WithLogger(logger)}
	if res.Notifier != nil {
		engineOpts = append(engineOpts, invoice.WithNotifier(res.Notifier))
	}
	if cfg.User != "" {
		user := cfg.User
		engineOpts = append(engineOpts, invoice.WithUserProvider(func(context.Context) string { return user }))
	}
	engine := invoice.New(res.Store, engineOpts...)

	if err := seedSettings(ctx, res.Store, engine, cfg.SettingsFile, logger); err != nil {
		_ = res.Cleanup()
		return nil, nil, err
	}
	return engine, res, nil
}

// seedSettings applies the settings file when the store holds no settings
// yet. Later edits go through "invoicer settings load".
func seedSettings(ctx context.Context, store storage.BlobStore, engine *invoice.Engine, path string, logger *applog.Logger) error {
	if path == "" {
		return nil
	}
	blob, err := store.Get(ctx, storage.KeySettings)
	if err != nil {
		return fmt.Errorf("check stored settings: %w", err)
	}
	if blob.Version > 0 {
		return nil
	}

	seed, found, err := settings.LoadOptional(path)
	if err != nil {
		return fmt.Errorf("load settings file %s: %w", path, err)
	}
	if !found {
		logger.WarnContext(ctx, "Settings file not found, using defaults", "path", path)
		return nil
	}
	if err := settings.Apply(ctx, engine, seed); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	logger.InfoContext(ctx, "Seeded settings", "path", path)
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
