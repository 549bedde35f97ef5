package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"invoicer/internal/invoice"
)

var (
	version = "dev"
	commit  = "none"
)

// app opens the engine on first use so commands like --help never touch
// storage.
type app struct {
	open func(ctx context.Context) (*invoice.Engine, func() error, error)
	now  func() time.Time

	once    sync.Once
	engine  *invoice.Engine
	cleanup func() error
	err     error
}

func (a *app) Engine(ctx context.Context) (*invoice.Engine, error) {
	a.once.Do(func() {
		a.engine, a.cleanup, a.err = a.open(ctx)
	})
	return a.engine, a.err
}

func (a *app) Close() error {
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "invoicer",
		Short:         "Create, track and exchange invoices",
		Long:          "invoicer manages invoices and clients over a local store, exports them as JSON or CSV and imports them back.",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newCreateCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newUpdateCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newOverdueCmd(a))
	cmd.AddCommand(newClientCmd(a))
	cmd.AddCommand(newSettingsCmd(a))
	return cmd
}

// NewRootCmdForTest returns the command tree bound to engine. now replaces
// the wall clock for date defaults; nil means time.Now.
func NewRootCmdForTest(engine *invoice.Engine, now func() time.Time) *cobra.Command {
	if now == nil {
		now = time.Now
	}
	return newRootCmd(&app{
		open: func(context.Context) (*invoice.Engine, func() error, error) { return engine, nil, nil },
		now:  now,
	})
}

// Execute runs the CLI against the store described by the environment.
func Execute(ctx context.Context) error {
	a := &app{
		now: time.Now,
		open: func(ctx context.Context) (*invoice.Engine, func() error, error) {
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return nil, nil, err
			}
			logger := SetupLogger(cfg)
			engine, res, err := OpenEngine(ctx, cfg, logger, EngineOptions{})
			if err != nil {
				return nil, nil, err
			}
			return engine, res.Cleanup, nil
		},
	}
	defer a.Close()

	return newRootCmd(a).ExecuteContext(ctx)
}
