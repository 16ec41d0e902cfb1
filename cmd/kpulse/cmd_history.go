package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/report"
	"github.com/willibrandon/kpulse/internal/storage/sqlite"
)

func newHistoryCmd() *cobra.Command {
	var (
		chart  string
		since  time.Duration
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the local sample archive",
		Long: `Without --chart, list the charts present in the archive. With --chart, print
the archived samples of that chart.

Samples are archived by the dashboard when history.enabled is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, closeDB, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if chart == "" {
				charts, err := store.Charts(ctx)
				if err != nil {
					return err
				}
				return report.WriteArchive(out, charts, time.Now())
			}

			format, err := report.ParseFormat(output)
			if err != nil {
				return err
			}
			points, err := store.History(ctx, chart, time.Now().Add(-since), limit)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				fmt.Fprintf(out, "no samples for %q in the last %s\n", chart, metrics.FormatWindow(since))
				return nil
			}
			return report.WritePoints(out, points, chartUnit(cfg, chart), time.Local, format)
		},
	}

	cmd.Flags().StringVar(&chart, "chart", "", "chart id to print")
	cmd.Flags().DurationVar(&since, "since", time.Hour, "how far back to read")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of timestamps (most recent kept)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, csv or json")

	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete archived samples older than history.retention",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, closeDB, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := store.Prune(cmd.Context(), time.Now(), cfg.History.Retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d rows older than %s\n", n, cfg.History.Retention)
			return nil
		},
	}
}

// openArchive loads the configuration and opens the archive it points at.
func openArchive(cmd *cobra.Command) (*config.Config, *sqlite.SampleStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := initLogging(cfg); err != nil {
		return nil, nil, nil, err
	}

	db, err := sqlite.Open(cmd.Context(), cfg.History.Path)
	if err != nil {
		logger.Close()
		return nil, nil, nil, fmt.Errorf("failed to open history archive: %w", err)
	}
	closeDB := func() {
		_ = db.Close()
		logger.Close()
	}
	return cfg, sqlite.NewSampleStore(db), closeDB, nil
}

func chartUnit(cfg *config.Config, id string) metrics.Unit {
	for _, c := range cfg.Charts {
		if c.ID == id {
			if u, err := metrics.ParseUnit(c.Unit); err == nil {
				return u
			}
		}
	}
	return metrics.UnitRaw
}
