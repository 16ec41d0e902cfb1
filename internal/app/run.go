package app

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/prom"
	"github.com/willibrandon/kpulse/internal/telemetry"
)

// Deps are the optional services the dashboard feeds.
type Deps struct {
	// Recorder archives live samples. Nil disables the archive.
	Recorder metrics.Recorder
	// Metrics collects backend and chart self-metrics. Nil disables them.
	Metrics *telemetry.Metrics
}

// Run builds one refresher per configured chart, runs the dashboard until
// the user quits or ctx is cancelled, then stops every refresher.
func Run(ctx context.Context, cfg *config.Config, deps Deps) error {
	var program atomic.Pointer[tea.Program]
	send := func(s metrics.Snapshot) {
		if p := program.Load(); p != nil {
			p.Send(SnapshotMsg{Snapshot: s})
		}
	}

	refreshers, charts, err := buildCharts(cfg, deps, send)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range refreshers {
			r.Stop()
		}
		logger.Debug("refreshers stopped", "count", len(refreshers))
	}()

	opts := Options{
		Backend:   cfg.Prometheus.URL,
		Recording: deps.Recorder != nil,
	}
	if deps.Metrics != nil {
		opts.Observer = deps.Metrics
	}

	p := tea.NewProgram(New(cfg, charts, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	program.Store(p)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// buildCharts creates a client per distinct series label and a refresher
// per chart. Refreshers are returned unconfigured; the model configures
// them once the program is running.
func buildCharts(cfg *config.Config, deps Deps, send func(metrics.Snapshot)) ([]*metrics.Refresher, []Chart, error) {
	clients := make(map[string]*prom.Client)
	var refreshers []*metrics.Refresher
	var charts []Chart

	for _, c := range cfg.Charts {
		client, ok := clients[c.Label]
		if !ok {
			popts := prom.Options{
				BaseURL: cfg.Prometheus.URL,
				Timeout: cfg.Prometheus.Timeout,
				Label:   c.Label,
				Headers: cfg.Prometheus.Headers,
			}
			if deps.Metrics != nil {
				popts.Observer = deps.Metrics
			}
			var err error
			client, err = prom.NewClient(popts)
			if err != nil {
				return nil, nil, fmt.Errorf("chart %s: %w", c.ID, err)
			}
			clients[c.Label] = client
		}

		ropts := []metrics.RefresherOption{
			metrics.WithTickInterval(cfg.UI.TickInterval),
			metrics.WithUpdateHandler(send),
		}
		if deps.Recorder != nil {
			ropts = append(ropts, metrics.WithRecorder(deps.Recorder))
		}
		r := metrics.NewRefresher(c.ID, client, ropts...)
		logger.Debug("chart created", "chart", c.ID, "instance", r.InstanceID(), "label", client.Label())

		refreshers = append(refreshers, r)
		charts = append(charts, Chart{Config: c, Controller: r})
	}
	return refreshers, charts, nil
}
