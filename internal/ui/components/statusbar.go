package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/ui/styles"
)

// StatusBar represents the status bar component
type StatusBar struct {
	width int

	// Status data
	backend    string
	timestamp  time.Time
	dateFormat string

	// Freshness of the most recent snapshot across charts
	updatedAt time.Time
	latency   time.Duration
	live      int
	total     int

	recording bool
}

// NewStatusBar creates a new status bar component
func NewStatusBar() *StatusBar {
	return &StatusBar{
		dateFormat: "2006-01-02 15:04:05",
	}
}

// SetSize sets the width of the status bar
func (s *StatusBar) SetSize(width int) {
	s.width = width
}

// SetBackend sets the Prometheus URL shown on the left.
func (s *StatusBar) SetBackend(url string) {
	s.backend = url
}

// SetTimestamp sets the current timestamp
func (s *StatusBar) SetTimestamp(timestamp time.Time) {
	s.timestamp = timestamp
}

// SetDateFormat sets the date format string
func (s *StatusBar) SetDateFormat(format string) {
	if format != "" {
		s.dateFormat = format
	}
}

// SetRecording flags that samples are archived to the history store.
func (s *StatusBar) SetRecording(recording bool) {
	s.recording = recording
}

// SetCharts records how many charts are live and the freshest update.
func (s *StatusBar) SetCharts(live, total int, updatedAt time.Time, latency time.Duration) {
	s.live = live
	s.total = total
	s.updatedAt = updatedAt
	s.latency = latency
}

// View renders the status bar
func (s *StatusBar) View() string {
	backend := s.backend
	if backend == "" {
		backend = "N/A"
	}

	sections := []string{
		styles.StatusTitleStyle.Render("kpulse"),
		styles.StatusTextStyle.Render(backend),
		styles.StatusTextStyle.Render(s.timestamp.Format(s.dateFormat)),
	}

	charts := fmt.Sprintf("%d/%d live", s.live, s.total)
	if s.live < s.total {
		sections = append(sections, styles.StatusWarnStyle.Render(charts))
	} else {
		sections = append(sections, styles.StatusTextStyle.Render(charts))
	}

	if !s.updatedAt.IsZero() {
		updated := "updated " + humanize.RelTime(s.updatedAt, s.timestamp, "ago", "from now")
		if s.latency > 0 {
			updated += fmt.Sprintf(" (%s)", s.latency.Round(time.Millisecond))
		}
		sections = append(sections, styles.StatusTextStyle.Render(updated))
	}

	if s.recording {
		sections = append(sections, styles.StatusTextStyle.Render("REC"))
	}

	// Warning and error counts, only in debug mode
	if logger.IsDebugEnabled() {
		warnCount, errCount := logger.Counts()
		if warnCount > 0 {
			sections = append(sections, styles.StatusWarnStyle.Render(fmt.Sprintf("⚠ %d", warnCount)))
		}
		if errCount > 0 {
			sections = append(sections, styles.StatusErrorStyle.Render(fmt.Sprintf("✕ %d", errCount)))
		}
	}

	line := strings.Join(sections, " | ")
	if s.width > 0 {
		line = ansi.Truncate(line, s.width, "…")
		return styles.StatusBarStyle.Width(s.width).Render(line)
	}
	return styles.StatusBarStyle.Render(line)
}

// Height returns the rendered height of the bar.
func (s *StatusBar) Height() int {
	return lipgloss.Height(s.View())
}
