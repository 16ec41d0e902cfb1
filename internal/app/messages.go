package app

import (
	"time"

	"github.com/willibrandon/kpulse/internal/metrics"
)

// SnapshotMsg carries a refresher update into the program.
type SnapshotMsg struct {
	Snapshot metrics.Snapshot
}

// StatusBarTickMsg is sent periodically to update the status bar
type StatusBarTickMsg struct {
	Timestamp time.Time
}

// ChartConfiguredMsg reports the outcome of a Configure or Reload call.
type ChartConfiguredMsg struct {
	ChartID string
	// Window is the window passed to Configure, zero for a Reload.
	Window  time.Duration
	Changed bool
	Err     error
}
