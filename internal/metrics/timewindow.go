// Package metrics holds the windowed sample buffer that backs every chart
// and the refresher that keeps it current.
package metrics

import (
	"fmt"
	"time"
)

// TimeWindow is one of the trailing windows offered in the dashboard.
type TimeWindow int

const (
	TimeWindow5m TimeWindow = iota
	TimeWindow30m
	TimeWindow1h
	TimeWindow2h
	TimeWindow3h
	TimeWindow6h
)

// DefaultTimeWindow is used when a chart does not configure one.
const DefaultTimeWindow = TimeWindow5m

// MinStep is the finest backfill resolution ever requested.
const MinStep = 10 * time.Second

// maxBackfillPoints bounds the number of points a backfill plots.
const maxBackfillPoints = 60

// Duration returns the time.Duration for the window.
func (tw TimeWindow) Duration() time.Duration {
	switch tw {
	case TimeWindow5m:
		return 5 * time.Minute
	case TimeWindow30m:
		return 30 * time.Minute
	case TimeWindow1h:
		return time.Hour
	case TimeWindow2h:
		return 2 * time.Hour
	case TimeWindow3h:
		return 3 * time.Hour
	case TimeWindow6h:
		return 6 * time.Hour
	default:
		return 5 * time.Minute
	}
}

// String returns a display label.
func (tw TimeWindow) String() string {
	switch tw {
	case TimeWindow5m:
		return "5m"
	case TimeWindow30m:
		return "30m"
	case TimeWindow1h:
		return "1h"
	case TimeWindow2h:
		return "2h"
	case TimeWindow3h:
		return "3h"
	case TimeWindow6h:
		return "6h"
	default:
		return "5m"
	}
}

// AllTimeWindows returns all available time windows in order.
func AllTimeWindows() []TimeWindow {
	return []TimeWindow{
		TimeWindow5m,
		TimeWindow30m,
		TimeWindow1h,
		TimeWindow2h,
		TimeWindow3h,
		TimeWindow6h,
	}
}

// NextWindow returns the preset following d, wrapping to the smallest.
// A duration between presets moves to the next larger one.
func NextWindow(d time.Duration) time.Duration {
	for _, tw := range AllTimeWindows() {
		if tw.Duration() > d {
			return tw.Duration()
		}
	}
	return TimeWindow5m.Duration()
}

// PrevWindow returns the preset preceding d, wrapping to the largest.
func PrevWindow(d time.Duration) time.Duration {
	windows := AllTimeWindows()
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Duration() < d {
			return windows[i].Duration()
		}
	}
	return windows[len(windows)-1].Duration()
}

// FormatWindow renders a window duration the way the presets are labelled.
func FormatWindow(d time.Duration) string {
	for _, tw := range AllTimeWindows() {
		if tw.Duration() == d {
			return tw.String()
		}
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return d.String()
}

// StepFor returns the backfill resolution for a window: one sixtieth of the
// window, never finer than MinStep. The result is truncated to milliseconds.
func StepFor(window time.Duration) time.Duration {
	step := time.Duration(window.Milliseconds()/maxBackfillPoints) * time.Millisecond
	if step < MinStep {
		return MinStep
	}
	return step
}
