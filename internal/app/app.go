package app

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/ui"
	"github.com/willibrandon/kpulse/internal/ui/components"
	"github.com/willibrandon/kpulse/internal/ui/styles"
)

// Controller drives one chart's data. *metrics.Refresher implements it.
type Controller interface {
	ChartID() string
	Configure(ctx context.Context, query string, window time.Duration) (bool, error)
	Reload(ctx context.Context) error
}

// ChartObserver is told about every snapshot the dashboard renders.
type ChartObserver interface {
	ObserveChart(chart string, points, series int)
}

// Chart pairs a chart definition with the controller that feeds it.
type Chart struct {
	Config     config.ChartConfig
	Controller Controller
}

// Options are the collaborators of the dashboard model.
type Options struct {
	Backend   string
	Observer  ChartObserver
	Recording bool
	Location  *time.Location
}

// Model represents the main Bubbletea application model
type Model struct {
	config *config.Config
	opts   Options

	// UI state
	width  int
	height int

	// Keyboard bindings
	keys ui.KeyMap

	// UI components
	help       *components.HelpText
	statusBar  *components.StatusBar
	debugPanel *components.DebugPanel
	spinner    spinner.Model

	// One entry per configured chart, in display order
	charts      []Chart
	views       []*components.SeriesChart
	windows     []time.Duration
	configuring []bool
	selected    int
	lastUpdates map[string]metrics.Snapshot

	// Application state
	helpVisible bool
	quitting    bool
	ready       bool
}

// New creates the dashboard model for the given charts.
func New(cfg *config.Config, charts []Chart, opts Options) *Model {
	keys := ui.DefaultKeyMap()
	keys.DebugLog.SetEnabled(cfg.Debug)

	statusBar := components.NewStatusBar()
	statusBar.SetBackend(opts.Backend)
	statusBar.SetDateFormat(cfg.UI.DateFormat)
	statusBar.SetRecording(opts.Recording)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.ColorAccent)

	m := &Model{
		config:      cfg,
		opts:        opts,
		keys:        keys,
		help:        components.NewHelp(keys),
		statusBar:   statusBar,
		debugPanel:  components.NewDebugPanel(),
		spinner:     sp,
		charts:      charts,
		lastUpdates: make(map[string]metrics.Snapshot, len(charts)),
	}
	for i, c := range charts {
		unit, err := metrics.ParseUnit(c.Config.Unit)
		if err != nil {
			unit = metrics.UnitRaw
		}
		view := components.NewSeriesChart(components.ChartConfig{
			ID:       c.Config.ID,
			Title:    c.Config.Title,
			Unit:     unit,
			Location: opts.Location,
		})
		view.SetSelected(i == 0)
		m.views = append(m.views, view)
		m.windows = append(m.windows, c.Config.Window)
		// Init issues the first Configure for every chart.
		m.configuring = append(m.configuring, true)
	}
	statusBar.SetCharts(0, len(charts), time.Time{}, 0)
	return m
}

// Init configures every chart and starts the clocks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickStatusBar(), m.spinner.Tick}
	for i, c := range m.charts {
		cmds = append(cmds, configureChart(c.Controller, c.Config.Query, m.windows[i]))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetSize(msg.Width, msg.Height)
		m.statusBar.SetSize(msg.Width)
		m.debugPanel.SetSize(msg.Width, msg.Height)
		m.layout()
		m.ready = true
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case ChartConfiguredMsg:
		if msg.Err != nil {
			logger.Warn("chart configuration failed", "chart", msg.ChartID, "error", msg.Err)
		}
		return m, m.configureDone(msg)

	case StatusBarTickMsg:
		m.statusBar.SetTimestamp(msg.Timestamp)
		return m, tickStatusBar()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		for _, v := range m.views {
			v.SetLoadingIndicator(m.spinner.View())
		}
		return m, cmd
	}

	if m.debugPanel.IsVisible() {
		var cmd tea.Cmd
		m.debugPanel, cmd = m.debugPanel.Update(msg)
		return m, cmd
	}
	return m, nil
}

// applySnapshot routes a refresher update to its chart. Updates from an
// older configuration than the one on screen are dropped.
func (m *Model) applySnapshot(s metrics.Snapshot) {
	idx := m.chartIndex(s.ChartID)
	if idx < 0 {
		return
	}
	if !m.views[idx].SetSnapshot(s) {
		logger.Debug("dropped stale snapshot", "chart", s.ChartID, "generation", s.Generation)
		return
	}
	m.lastUpdates[s.ChartID] = s
	if m.opts.Observer != nil {
		m.opts.Observer.ObserveChart(s.ChartID, len(s.Points), len(s.Names))
	}
	m.refreshStatus()
}

func (m *Model) refreshStatus() {
	live := 0
	var updatedAt time.Time
	var latency time.Duration
	for _, s := range m.lastUpdates {
		if s.State == metrics.StateLive {
			live++
		}
		if s.UpdatedAt.After(updatedAt) {
			updatedAt = s.UpdatedAt
			latency = s.FetchLatency
		}
	}
	m.statusBar.SetCharts(live, len(m.charts), updatedAt, latency)
}

func (m Model) chartIndex(id string) int {
	for i, c := range m.charts {
		if c.Config.ID == id {
			return i
		}
	}
	return -1
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && !m.debugPanel.IsVisible() {
		m.quitting = true
		return m, tea.Quit
	}

	if m.debugPanel.IsVisible() {
		var cmd tea.Cmd
		m.debugPanel, cmd = m.debugPanel.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = !m.helpVisible
		return m, nil
	case key.Matches(msg, m.keys.Close) && m.helpVisible:
		m.helpVisible = false
		return m, nil
	case key.Matches(msg, m.keys.DebugLog):
		m.debugPanel.Toggle()
		return m, nil
	}

	if len(m.charts) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextChart):
		m.selectChart((m.selected + 1) % len(m.charts))
	case key.Matches(msg, m.keys.PrevChart):
		m.selectChart((m.selected - 1 + len(m.charts)) % len(m.charts))
	case key.Matches(msg, m.keys.NextWindow):
		return m, m.setWindow(metrics.NextWindow(m.windows[m.selected]))
	case key.Matches(msg, m.keys.PrevWindow):
		return m, m.setWindow(metrics.PrevWindow(m.windows[m.selected]))
	case key.Matches(msg, m.keys.Reload):
		c := m.charts[m.selected]
		return m, reloadChart(c.Controller)
	}
	return m, nil
}

func (m *Model) selectChart(i int) {
	m.views[m.selected].SetSelected(false)
	m.selected = i
	m.views[i].SetSelected(true)
}

// setWindow records the new window for the selected chart and returns the
// command that reconfigures its refresher. At most one Configure per chart
// is in flight; a window picked meanwhile is sent when it completes.
func (m *Model) setWindow(window time.Duration) tea.Cmd {
	i := m.selected
	m.windows[i] = window
	c := m.charts[i]
	logger.Debug("window changed", "chart", c.Config.ID, "window", window)
	if m.configuring[i] {
		return nil
	}
	m.configuring[i] = true
	return configureChart(c.Controller, c.Config.Query, window)
}

// configureDone settles a finished Configure and re-issues it when the
// requested window moved on while it ran.
func (m *Model) configureDone(msg ChartConfiguredMsg) tea.Cmd {
	i := m.chartIndex(msg.ChartID)
	if i < 0 || msg.Window == 0 {
		return nil
	}
	if msg.Window == m.windows[i] {
		m.configuring[i] = false
		return nil
	}
	c := m.charts[i]
	return configureChart(c.Controller, c.Config.Query, m.windows[i])
}

// Selected returns the id of the chart receiving window keys.
func (m Model) Selected() string {
	if len(m.charts) == 0 {
		return ""
	}
	return m.charts[m.selected].Config.ID
}

// Window returns the window currently requested for a chart.
func (m Model) Window(chartID string) time.Duration {
	if i := m.chartIndex(chartID); i >= 0 {
		return m.windows[i]
	}
	return 0
}

// layout splits the space under the status bar between the charts.
func (m *Model) layout() {
	if len(m.views) == 0 {
		return
	}
	avail := m.height - m.statusBar.Height() - 1
	per := avail / len(m.views)
	for _, v := range m.views {
		v.SetSize(m.width, per)
	}
}

// View renders the application UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	if m.debugPanel.IsVisible() {
		return m.debugPanel.View()
	}
	if m.helpVisible {
		return m.help.View()
	}

	var b strings.Builder
	b.WriteString(m.statusBar.View())
	b.WriteString("\n")
	if len(m.views) == 0 {
		b.WriteString(styles.PlaceholderStyle.Render("No charts configured"))
		b.WriteString("\n")
	}
	for _, v := range m.views {
		b.WriteString(v.View())
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelp())
	return b.String()
}
