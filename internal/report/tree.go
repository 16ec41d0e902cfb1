package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/xlab/treeprint"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/storage/sqlite"
)

// ConfigTree renders the effective configuration as a tree. Header values
// are masked since they usually carry credentials.
func ConfigTree(cfg *config.Config) string {
	source := cfg.Source
	if source == "" {
		source = "defaults"
	}
	tree := treeprint.NewWithRoot("kpulse (" + source + ")")

	p := tree.AddBranch("prometheus")
	p.AddMetaNode("url", cfg.Prometheus.URL)
	p.AddMetaNode("timeout", durationOrNone(cfg.Prometheus.Timeout))
	p.AddMetaNode("label", cfg.Prometheus.Label)
	if len(cfg.Prometheus.Headers) > 0 {
		h := p.AddBranch("headers")
		keys := make([]string, 0, len(cfg.Prometheus.Headers))
		for k := range cfg.Prometheus.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			h.AddMetaNode(k, "****")
		}
	}

	charts := tree.AddBranch(fmt.Sprintf("charts (%d)", len(cfg.Charts)))
	for _, c := range cfg.Charts {
		b := charts.AddMetaBranch(c.ID, c.Title)
		b.AddMetaNode("query", c.Query)
		b.AddMetaNode("window", metrics.FormatWindow(c.Window))
		b.AddMetaNode("step", metrics.StepFor(c.Window))
		b.AddMetaNode("unit", c.Unit)
		b.AddMetaNode("label", c.Label)
	}

	ui := tree.AddBranch("ui")
	ui.AddMetaNode("theme", cfg.UI.Theme)
	ui.AddMetaNode("date_format", cfg.UI.DateFormat)
	ui.AddMetaNode("tick_interval", cfg.UI.TickInterval)

	h := tree.AddBranch("history")
	h.AddMetaNode("enabled", strconv.FormatBool(cfg.History.Enabled))
	h.AddMetaNode("path", cfg.History.Path)
	h.AddMetaNode("retention", cfg.History.Retention)

	t := tree.AddBranch("telemetry")
	listen := cfg.Telemetry.Listen
	if listen == "" {
		listen = "disabled"
	}
	t.AddMetaNode("listen", listen)

	tree.AddMetaNode("log_file", cfg.LogFile)
	tree.AddMetaNode("debug", strconv.FormatBool(cfg.Debug))

	return tree.String()
}

func durationOrNone(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

// WriteArchive lists the charts present in the sample archive.
func WriteArchive(w io.Writer, charts []sqlite.ChartSummary, now time.Time) error {
	if len(charts) == 0 {
		_, err := fmt.Fprintln(w, mutedFormat("archive is empty"))
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Chart", "Series", "Rows", "First", "Last"})
	data := make([][]string, 0, len(charts))
	for _, c := range charts {
		data = append(data, []string{
			c.ChartID,
			strconv.FormatInt(c.Series, 10),
			humanize.Comma(c.Rows),
			humanize.RelTime(c.First, now, "ago", "from now"),
			humanize.RelTime(c.Last, now, "ago", "from now"),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
