package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/config"
	"github.com/cedd82/mongoSchemaVersion/internal/logging"
	"github.com/cedd82/mongoSchemaVersion/internal/store"
	"github.com/cedd82/mongoSchemaVersion/internal/store/memstore"
	"github.com/cedd82/mongoSchemaVersion/internal/store/mongostore"
	"github.com/cedd82/mongoSchemaVersion/internal/store/sqlite"
	"github.com/cedd82/mongoSchemaVersion/internal/testmodel"
	"github.com/cedd82/mongoSchemaVersion/internal/ui"
	"github.com/cedd82/mongoSchemaVersion/internal/vers"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Set up by the root command before any subcommand runs.
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	app      *App
)

var rootCmd = &cobra.Command{
	Use:   "schemav",
	Short: "schemav - versioned document models with lazy migration",
	Long: `schemav stores documents that carry a schemaVersion and reads them
through typed shapes. A document written by one version of a model is
upgraded or downgraded to the version the reader asks for when it is
loaded. Nothing is written back unless you save.

Configuration is read from schemav.yaml (or .toml/.json) in ./.schemav or
$HOME/.config/schemav, and from SCHEMAV_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logger, closeLog, err = logging.New(logging.FromConfig(cfg.Log, verbose))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if cfg.File != "" {
			logger.Debug("config loaded", zap.String("file", cfg.File))
		}

		registry := vers.NewRegistry()
		if err := testmodel.Register(registry); err != nil {
			return fmt.Errorf("failed to register shapes: %w", err)
		}

		app = &App{
			Config:   cfg,
			Logger:   logger,
			Registry: registry,
			Out:      ui.NewPrinter(cmd.OutOrStdout()),
			Open:     openGateway,
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdown()
	},
}

// shutdown closes the store and flushes the logger. Post-run hooks are
// skipped when a command fails, so main calls it as well.
func shutdown() {
	if app != nil {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}
	if closeLog != nil {
		_ = closeLog()
		closeLog = nil
	}
}

// openGateway opens the store named by the configured driver.
func openGateway(ctx context.Context, c *config.Config, log *zap.Logger) (store.Gateway, error) {
	switch c.Store.Driver {
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		sc := sqlite.DefaultConfig()
		sc.Logger = log
		return sqlite.OpenWithConfig(ctx, c.Store.Path, sc)
	case config.DriverMongo:
		mc := mongostore.DefaultConfig()
		mc.URI = c.Store.URI
		mc.Database = c.Store.Database
		mc.Collection = c.Store.Collection
		mc.Logger = log
		return mongostore.Open(ctx, mc)
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: schemav.yaml in ./.schemav or $HOME/.config/schemav)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "docs", Title: "Documents:"},
		&cobra.Group{ID: "shapes", Title: "Shapes:"},
		&cobra.Group{ID: "store", Title: "Store:"},
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	if err != nil {
		ui.NewPrinter(os.Stderr).Error(err)
		stop()
		os.Exit(1)
	}
}
