package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/backend"
	"invoicer/internal/cli"
	"invoicer/internal/config"
	applog "invoicer/internal/log"
	"invoicer/internal/services"
	"invoicer/internal/worker"
)

func main() {
	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentWorker)
	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	logger.Info("Starting invoicer-worker", applog.FieldBackend, cfg.DataBackend)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// Other processes write the store; every event must read it fresh.
	engine, res, err := cli.OpenEngine(ctx, cfg, logger, cli.EngineOptions{DisableCache: true, RequireBroker: true})
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", applog.FieldError, err)
		}
	}()

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(ctx, bc)
	if err != nil {
		return err
	}

	syncWorker := worker.NewSyncWorker(engine, mirror, logger)

	logger.Info("Performing startup resync...")
	if err := syncWorker.FullSync(ctx); err != nil {
		// Events still flow; the next import or restart retries.
		logger.Error("Startup resync failed", applog.FieldError, err)
	}

	sweeper := services.NewOverdueSweeper(engine, services.OverdueSweeperConfig{
		Interval:  cfg.OverdueInterval,
		GraceDays: cfg.OverdueGraceDays,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.Broker.Consume(gctx, syncWorker.HandleMessage)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	if res.Caches != nil {
		g.Go(func() error {
			return res.Caches.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
