// Package services holds long-running processors built on the invoice
// engine.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
)

// OverdueMarker is the engine operation the sweeper drives.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, today core.Date) ([]core.Invoice, error)
}

// OverdueSweeperConfig holds configuration for the overdue sweeper
type OverdueSweeperConfig struct {
	// Interval between sweeps (default: 1h)
	Interval time.Duration

	// GraceDays delays the overdue transition past the due date (default: 0)
	GraceDays int
}

func DefaultOverdueSweeperConfig() OverdueSweeperConfig {
	return OverdueSweeperConfig{
		Interval:  time.Hour,
		GraceDays: 0,
	}
}

// OverdueSweeper periodically moves sent invoices past their due date to
// overdue.
type OverdueSweeper struct {
	engine OverdueMarker
	config OverdueSweeperConfig
	now    func() time.Time
	logger *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOverdueSweeper(engine OverdueMarker, config OverdueSweeperConfig, logger *applog.Logger) *OverdueSweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultOverdueSweeperConfig().Interval
	}
	if config.GraceDays < 0 {
		config.GraceDays = 0
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &OverdueSweeper{
		engine: engine,
		config: config,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentOverdue),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("overdue sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	s.logger.InfoContext(ctx, "Overdue sweeper started",
		"interval", s.config.Interval,
		"grace_days", s.config.GraceDays)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Overdue sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run sweeps until ctx is cancelled. It fits an errgroup and returns nil on
// cancellation.
func (s *OverdueSweeper) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *OverdueSweeper) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Overdue sweep failed",
			applog.FieldOperation, applog.OpSweep,
			applog.FieldError, err)
	}
}

// SweepOnce runs a single sweep and returns the invoices it changed.
func (s *OverdueSweeper) SweepOnce(ctx context.Context) ([]core.Invoice, error) {
	start := time.Now()
	cutoff := core.DateOf(s.now()).AddDays(-s.config.GraceDays)

	changed, err := s.engine.MarkOverdue(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("mark overdue: %w", err)
	}

	if len(changed) > 0 {
		s.logger.InfoContext(ctx, "Invoices marked overdue",
			applog.FieldOperation, applog.OpSweep,
			applog.FieldCount, len(changed),
			applog.FieldDuration, time.Since(start))
	} else {
		s.logger.DebugContext(ctx, "No invoices became overdue", applog.FieldOperation, applog.OpSweep)
	}
	return changed, nil
}
