package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/willibrandon/kpulse/internal/app"
	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/storage/sqlite"
	"github.com/willibrandon/kpulse/internal/telemetry"
	"github.com/willibrandon/kpulse/internal/ui/styles"
)

var (
	// Version info (set by ldflags)
	version = "dev"
	commit  = "none"

	// Flags
	configPath string
	debug      bool
)

// pruneInterval is how often the archive drops rows past retention.
const pruneInterval = time.Hour

var (
	errPrefix  = color.New(color.FgHiRed, color.Bold).SprintFunc()
	hintFormat = color.New(color.FgHiBlack).SprintFunc()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kpulse",
		Short: "Live Prometheus charts in the terminal",
		Long: `kpulse polls a Prometheus-compatible backend and draws one live chart per
configured query, grouped by a series label (namespace by default).

Each chart backfills its window with a range query, then appends the latest
instant sample every tick and drops points that fall out of the window.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/kpulse/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newDashboardCmd(),
		newQueryCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errPrefix("Error:"), err)
		os.Exit(1)
	}
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the live chart dashboard (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kpulse %s (%s)\n", version, commit)
		},
	}
}

// loadConfig reads and validates the configuration and applies --debug.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigFromPath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// initLogging starts the file logger for cfg.
func initLogging(cfg *config.Config) error {
	level := "info"
	if cfg.Debug {
		level = "debug"
	}
	if err := logger.Init(logger.Options{Level: level, Path: cfg.LogFile}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if cfg.Debug {
		fmt.Fprintf(os.Stderr, "%s %s\n", hintFormat("Debug mode: logs written to"), logger.Path())
	}
	return nil
}

func runDashboard(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	logger.Info("kpulse starting",
		"version", version,
		"config", cfg.Source,
		"backend", cfg.Prometheus.URL,
		"charts", len(cfg.Charts))

	if err := styles.SetTheme(cfg.UI.Theme); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var deps app.Deps

	if cfg.Telemetry.Listen != "" {
		deps.Metrics = telemetry.NewMetrics()
		srv, err := telemetry.Start(cfg.Telemetry.Listen, deps.Metrics)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.History.Enabled {
		db, err := sqlite.Open(ctx, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history archive: %w", err)
		}
		defer db.Close()

		store := sqlite.NewSampleStore(db)
		deps.Recorder = store

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.RunPruner(ctx, pruneInterval, cfg.History.Retention)
		}()
		// Stop the pruner before the database closes.
		defer func() {
			cancel()
			wg.Wait()
		}()

		logger.Info("recording samples", "path", db.Path(), "retention", cfg.History.Retention.String())
	}

	return app.Run(ctx, cfg, deps)
}
