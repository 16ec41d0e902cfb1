package components

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/ui/styles"
)

// DebugPanel displays recent warnings and errors.
type DebugPanel struct {
	viewport viewport.Model
	width    int
	height   int
	visible  bool
}

// NewDebugPanel creates a new debug panel.
func NewDebugPanel() *DebugPanel {
	return &DebugPanel{viewport: viewport.New(0, 0)}
}

func (d *DebugPanel) panelWidth() int {
	return max(d.width*80/100, 60)
}

// SetSize sets the panel dimensions.
func (d *DebugPanel) SetSize(width, height int) {
	d.width = width
	d.height = height

	// 80% width, 60% height, centered
	panelHeight := max(height*60/100, 10)
	d.viewport = viewport.New(d.panelWidth()-6, panelHeight-6)
}

// Toggle toggles panel visibility.
func (d *DebugPanel) Toggle() {
	d.visible = !d.visible
	if d.visible {
		d.refresh()
	}
}

// Hide hides the panel.
func (d *DebugPanel) Hide() {
	d.visible = false
}

// IsVisible returns whether the panel is visible.
func (d *DebugPanel) IsVisible() bool {
	return d.visible
}

func (d *DebugPanel) refresh() {
	entries := logger.Recent()

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		style := styles.StatusWarnStyle
		if e.Level >= slog.LevelError {
			style = styles.StatusErrorStyle
		}
		lines = append(lines, style.Render(e.String()))
	}
	if len(lines) == 0 {
		lines = append(lines, styles.DialogMutedStyle.Render("No warnings or errors"))
	}

	d.viewport.SetContent(strings.Join(lines, "\n"))
	d.viewport.GotoBottom()
}

// Update handles messages while the panel is open.
func (d *DebugPanel) Update(msg tea.Msg) (*DebugPanel, tea.Cmd) {
	if !d.visible {
		return d, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc", "D", "q":
			d.Hide()
			return d, nil
		case "c":
			logger.ResetCounts()
			d.refresh()
			return d, nil
		}
	}

	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

// View renders the panel as a centered overlay.
func (d *DebugPanel) View() string {
	if !d.visible {
		return ""
	}
	d.refresh()

	warnCount, errCount := logger.Counts()
	header := styles.DialogTitleStyle.Render("Debug Log") +
		styles.DialogMutedStyle.Render(fmt.Sprintf(" (%d warnings, %d errors)", warnCount, errCount))
	rule := strings.Repeat("─", d.panelWidth()-6)

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		rule,
		d.viewport.View(),
		rule,
		styles.DialogMutedStyle.Render("[D/Esc] close  [c] clear counts  [j/k] scroll"),
	)

	panel := styles.DialogStyle.Width(d.panelWidth()).Render(content)
	return lipgloss.Place(d.width, d.height, lipgloss.Center, lipgloss.Center, panel)
}
