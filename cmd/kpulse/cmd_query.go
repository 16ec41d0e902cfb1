package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willibrandon/kpulse/internal/app"
	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/prom"
	"github.com/willibrandon/kpulse/internal/report"
)

type queryOptions struct {
	window  time.Duration
	step    time.Duration
	instant bool
	label   string
	unit    string
	chart   string
	output  string
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query [expr]",
		Short: "Run one query and print the pivoted result",
		Long: `Run a PromQL expression once against the configured backend and print the
result as one row per timestamp and one column per series.

Unlike the dashboard, failures are reported instead of shown as an empty
chart. Use --chart to run a configured chart's query.`,
		Example: `  kpulse query 'sum(rate(container_cpu_usage_seconds_total[1m])) by (namespace)'
  kpulse query --chart memory --range 1h --unit megabytes
  kpulse query --chart cpu --instant`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.window, "range", 5*time.Minute, "trailing range to query")
	cmd.Flags().DurationVar(&opts.step, "step", 0, "resolution (default: range/60, at least 10s)")
	cmd.Flags().BoolVar(&opts.instant, "instant", false, "query only the latest sample and draw it as bars")
	cmd.Flags().StringVar(&opts.label, "label", "", "label naming each series (default from config)")
	cmd.Flags().StringVar(&opts.unit, "unit", "", "value unit: raw, percent, megabytes or bytes")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "use the query, unit and label of a configured chart")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "output format: table, csv or json")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts queryOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	expr, label, unitName, err := resolveQuery(cfg, args, opts)
	if err != nil {
		return err
	}
	unit, err := metrics.ParseUnit(unitName)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	if !opts.instant && opts.window <= 0 {
		return errors.New("--range must be positive")
	}

	client, err := prom.NewClient(prom.Options{
		BaseURL: cfg.Prometheus.URL,
		Timeout: cfg.Prometheus.Timeout,
		Label:   label,
		Headers: cfg.Prometheus.Headers,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	width := terminalWidth()

	q := report.Query{
		Backend: client.BaseURL(),
		Expr:    expr,
		Label:   client.Label(),
		Unit:    unit,
	}

	started := time.Now()
	if opts.instant {
		q.Endpoint = prom.EndpointQuery
		p, err := client.QueryInstant(ctx, expr)
		if err != nil {
			return errors.New(app.FormatBackendError(err, client.BaseURL()))
		}
		q.Elapsed = time.Since(started)
		q.Points = []metrics.SamplePoint{p}
	} else {
		step := opts.step
		if step <= 0 {
			step = metrics.StepFor(opts.window)
		}
		q.Endpoint = prom.EndpointQueryRange
		q.End = started
		q.Start = started.Add(-opts.window)
		q.Step = step
		points, err := client.QueryRange(ctx, expr, q.Start.UnixMilli(), q.End.UnixMilli(), step.Milliseconds())
		if err != nil {
			return errors.New(app.FormatBackendError(err, client.BaseURL()))
		}
		q.Elapsed = time.Since(started)
		q.Points = points
	}

	if format != report.FormatTable {
		return report.WritePoints(out, q.Points, unit, time.Local, format)
	}

	if err := report.WriteSummary(out, q, uint(width), cfg.UI.Theme); err != nil {
		return err
	}
	if opts.instant {
		return report.WriteBars(out, q.Points[0], unit, width)
	}
	return report.WritePoints(out, q.Points, unit, time.Local, format)
}

// resolveQuery picks the expression, label and unit from --chart, the
// positional argument and flags, in increasing precedence.
func resolveQuery(cfg *config.Config, args []string, opts queryOptions) (expr, label, unit string, err error) {
	label = cfg.Prometheus.Label
	if opts.chart != "" {
		found := false
		for _, c := range cfg.Charts {
			if c.ID == opts.chart {
				expr, label, unit = c.Query, c.Label, c.Unit
				found = true
				break
			}
		}
		if !found {
			return "", "", "", fmt.Errorf("no chart with id %q", opts.chart)
		}
	}
	if len(args) > 0 {
		expr = args[0]
	}
	if opts.label != "" {
		label = opts.label
	}
	if opts.unit != "" {
		unit = opts.unit
	}
	if strings.TrimSpace(expr) == "" {
		return "", "", "", errors.New("an expression or --chart is required")
	}
	return expr, label, unit, nil
}

// terminalWidth returns the width of stdout, or 80 when it is not a
// terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 80
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
