// Package components provides reusable UI components.
package components

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/guptarohit/asciigraph"
	"github.com/mattn/go-runewidth"

	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/ui/styles"
)

const (
	minChartWidth  = 24
	minChartHeight = 8
	maxLegendName  = 24

	// rows taken by the header, tick row and legend inside the frame, plus
	// the extra row asciigraph draws beyond its configured height
	chartChromeRows = 4
)

// ChartConfig configures a SeriesChart.
type ChartConfig struct {
	ID       string
	Title    string
	Unit     metrics.Unit
	Width    int
	Height   int
	Location *time.Location
}

// SeriesChart renders one chart snapshot as a framed multi-series line graph
// with an HH:MM tick row and a legend of latest values.
type SeriesChart struct {
	id       string
	title    string
	unit     metrics.Unit
	width    int
	height   int
	loc      *time.Location
	selected bool
	loading  string
	snap     metrics.Snapshot
	hasSnap  bool
}

// NewSeriesChart creates a chart component.
func NewSeriesChart(config ChartConfig) *SeriesChart {
	c := &SeriesChart{
		id:    config.ID,
		title: config.Title,
		unit:  config.Unit,
		loc:   config.Location,
	}
	if c.title == "" {
		c.title = c.id
	}
	if c.unit == "" {
		c.unit = metrics.UnitRaw
	}
	c.SetSize(config.Width, config.Height)
	return c
}

// ID returns the chart id the component renders.
func (c *SeriesChart) ID() string {
	return c.id
}

// SetSize updates the outer dimensions, frame included.
func (c *SeriesChart) SetSize(width, height int) {
	c.width = max(width, minChartWidth)
	c.height = max(height, minChartHeight)
}

// SetSelected marks the chart as the target of window keys.
func (c *SeriesChart) SetSelected(selected bool) {
	c.selected = selected
}

// SetLoadingIndicator sets the spinner frame shown while backfilling.
func (c *SeriesChart) SetLoadingIndicator(frame string) {
	c.loading = frame
}

// SetSnapshot installs s unless it belongs to an older configuration than
// the one already shown. It reports whether the snapshot was accepted.
func (c *SeriesChart) SetSnapshot(s metrics.Snapshot) bool {
	if c.hasSnap && s.Generation < c.snap.Generation {
		return false
	}
	c.snap = s
	c.hasSnap = true
	return true
}

// Snapshot returns the snapshot currently shown.
func (c *SeriesChart) Snapshot() metrics.Snapshot {
	return c.snap
}

// View renders the framed chart.
func (c *SeriesChart) View() string {
	style := styles.PanelStyle
	if c.selected {
		style = styles.PanelSelectedStyle
	}

	innerW := c.width - style.GetHorizontalFrameSize()
	innerH := c.height - style.GetVerticalFrameSize()
	plotH := max(innerH-chartChromeRows, 2)

	header := c.renderHeader(innerW)
	body, ok := c.renderPlot(innerW, plotH)
	if !ok {
		body = c.renderPlaceholder(innerW, plotH+2)
	}
	legend := c.renderLegend(innerW)

	content := lipgloss.JoinVertical(lipgloss.Left, header, body, legend)
	return style.
		Width(innerW + style.GetHorizontalPadding()).
		Height(innerH).
		Render(content)
}

func (c *SeriesChart) renderHeader(width int) string {
	title := styles.PanelTitleStyle.Render(c.title)

	parts := []string{metrics.FormatWindow(c.snap.Window)}
	if axis := c.unit.Axis(); axis != "" {
		parts = append(parts, axis)
	}
	parts = append(parts, c.snap.State.String())
	if latest, ok := c.snap.Latest(); ok {
		parts = append(parts, "last "+metrics.FormatTooltip(latest.Timestamp, c.loc))
	}
	caption := styles.PanelCaptionStyle.Render(" (" + strings.Join(parts, " · ") + ")")

	return ansi.Truncate(title+caption, width, "…")
}

func (c *SeriesChart) renderPlaceholder(width, height int) string {
	msg := "Waiting for data..."
	switch c.snap.State {
	case metrics.StateUninitialized:
		msg = "Not configured"
	case metrics.StateBackfilling:
		msg = strings.TrimSpace(c.loading + " Loading " + metrics.FormatWindow(c.snap.Window) + " of history...")
	case metrics.StateStopped:
		msg = "Stopped"
	}
	return styles.PlaceholderStyle.
		Width(width).
		Height(height).
		Render(msg)
}

// renderPlot draws the graph and tick row. It reports false when there is
// no finite value to plot.
func (c *SeriesChart) renderPlot(width, height int) (string, bool) {
	latest, ok := c.snap.Latest()
	if !ok || len(c.snap.Names) == 0 {
		return "", false
	}

	end := latest.Timestamp
	start := c.snap.Points[0].Timestamp
	if c.snap.Window > 0 {
		start = end - c.snap.Window.Milliseconds()
	}

	// The y-axis gutter depends on the label widths, so plot once with a
	// guess and again if the guess was off.
	cols := max(width-10, 2)
	var graph string
	var gutter int
	for range 2 {
		series := resample(c.snap.Points, c.snap.Names, start, end, cols, c.unit)
		if !anyFinite(series) {
			return "", false
		}
		graph = c.plot(series, height)
		gutter = axisGutter(graph)
		if gutter+cols == width || width-gutter < 2 {
			break
		}
		cols = width - gutter
	}

	axis := tickRow(c.snap.Ticks, start, end, cols, c.loc)
	row := strings.Repeat(" ", gutter) + styles.AxisLabelStyle.Render(axis)
	return graph + "\n" + row, true
}

func (c *SeriesChart) plot(series [][]float64, height int) string {
	colors := make([]asciigraph.AnsiColor, len(series))
	for i := range series {
		colors[i] = styles.SeriesColorAt(i).Ansi
	}
	return strings.TrimRight(asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.LowerBound(0),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.AxisColor(styles.AxisColor),
		asciigraph.LabelColor(styles.LabelColor),
	), "\n")
}

func (c *SeriesChart) renderLegend(width int) string {
	if len(c.snap.Names) == 0 {
		return ""
	}
	items := make([]string, 0, len(c.snap.Names))
	for i, name := range c.snap.Names {
		value := math.NaN()
		if v, ok := latestValue(c.snap.Points, name); ok {
			value = v
		}
		label := runewidth.Truncate(name, maxLegendName, "…")
		items = append(items, styles.LegendStyle(i).Render("■ "+label)+" "+c.unit.Format(value))
	}
	return ansi.Truncate(strings.Join(items, "  "), width, "…")
}

// resample projects points onto cols evenly spaced instants in [start, end].
// Each column holds the value of the latest point at or before its instant,
// and NaN where that point has no value for the series.
func resample(points []metrics.SamplePoint, names []string, start, end int64, cols int, unit metrics.Unit) [][]float64 {
	series := make([][]float64, len(names))
	for i := range series {
		series[i] = make([]float64, cols)
	}

	span := float64(end - start)
	j := -1
	for col := 0; col < cols; col++ {
		at := end
		if cols > 1 {
			at = start + int64(math.Round(span*float64(col)/float64(cols-1)))
		}
		for j+1 < len(points) && points[j+1].Timestamp <= at {
			j++
		}
		for i, name := range names {
			v := math.NaN()
			if j >= 0 {
				if raw, ok := points[j].Get(name); ok {
					v = unit.Scale(raw)
				}
			}
			series[i][col] = v
		}
	}
	return series
}

func anyFinite(series [][]float64) bool {
	for _, s := range series {
		for _, v := range s {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return true
			}
		}
	}
	return false
}

func latestValue(points []metrics.SamplePoint, name string) (float64, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if v, ok := points[i].Get(name); ok {
			return v, true
		}
	}
	return 0, false
}

// axisGutter returns the number of cells left of the first data column,
// found from the axis glyph on the top row.
func axisGutter(graph string) int {
	first, _, _ := strings.Cut(graph, "\n")
	plain := ansi.Strip(first)
	idx := strings.IndexAny(plain, "┤┼")
	if idx < 0 {
		return 0
	}
	return utf8.RuneCountInString(plain[:idx]) + 1
}

// tickRow lays out HH:MM labels under the columns their timestamps map to,
// skipping labels that would overlap the previous one.
func tickRow(ticks []int64, start, end int64, cols int, loc *time.Location) string {
	row := []rune(strings.Repeat(" ", cols))
	next := 0
	span := float64(end - start)
	for _, ts := range ticks {
		if ts < start || ts > end {
			continue
		}
		col := 0
		if span > 0 && cols > 1 {
			col = int(math.Round(float64(ts-start) / span * float64(cols-1)))
		}
		label := []rune(metrics.FormatTick(ts, loc))
		if col < next || col+len(label) > cols {
			continue
		}
		copy(row[col:], label)
		next = col + len(label) + 1
	}
	return strings.TrimRight(string(row), " ")
}
