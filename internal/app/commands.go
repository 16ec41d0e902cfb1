package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// configureChart runs Configure off the update loop and reports the result
// as a ChartConfiguredMsg.
func configureChart(c Controller, query string, window time.Duration) tea.Cmd {
	return func() tea.Msg {
		changed, err := c.Configure(context.Background(), query, window)
		return ChartConfiguredMsg{
			ChartID: c.ChartID(),
			Window:  window,
			Changed: changed,
			Err:     err,
		}
	}
}

// reloadChart forces a fresh backfill for one chart.
func reloadChart(c Controller) tea.Cmd {
	return func() tea.Msg {
		err := c.Reload(context.Background())
		return ChartConfiguredMsg{
			ChartID: c.ChartID(),
			Changed: err == nil,
			Err:     err,
		}
	}
}

// tickStatusBar creates a command to update the status bar timestamp
func tickStatusBar() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return StatusBarTickMsg{Timestamp: t}
	})
}
