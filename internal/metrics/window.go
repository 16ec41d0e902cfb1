package metrics

import (
	"sort"
	"time"
)

// SeriesWindow is the bounded, time-ordered sample buffer of one chart.
//
// Points are kept strictly ascending by timestamp. A SeriesWindow is not
// safe for concurrent use; the owning Refresher serializes access.
type SeriesWindow struct {
	points   []SamplePoint
	duration time.Duration
	names    []string
}

// NewSeriesWindow creates an empty window retaining duration of history.
func NewSeriesWindow(duration time.Duration) *SeriesWindow {
	return &SeriesWindow{duration: duration}
}

// Duration returns the retention horizon.
func (w *SeriesWindow) Duration() time.Duration {
	return w.duration
}

// Replace discards the buffer and installs points, as a backfill does.
// Points out of order or sharing a timestamp with their predecessor are
// dropped. Series names are recomputed from the last point.
func (w *SeriesWindow) Replace(points []SamplePoint) {
	kept := make([]SamplePoint, 0, len(points))
	for _, p := range points {
		if n := len(kept); n > 0 && p.Timestamp <= kept[n-1].Timestamp {
			continue
		}
		kept = append(kept, p)
	}
	w.points = kept

	if len(kept) == 0 {
		w.names = nil
		return
	}
	w.names = deriveNames(w.names, kept[len(kept)-1])
}

// Append adds p at the end of the buffer. A point that is not newer than
// the current last point is rejected. Series names follow p only when it
// carries at least one reading, so a missed sample keeps the legend.
func (w *SeriesWindow) Append(p SamplePoint) bool {
	if n := len(w.points); n > 0 && p.Timestamp <= w.points[n-1].Timestamp {
		return false
	}
	w.points = append(w.points, p)
	if !p.IsEmpty() {
		w.names = deriveNames(w.names, p)
	}
	return true
}

// Evict drops every point older than now minus the window duration and
// returns how many were removed. A point exactly at the cutoff is kept.
func (w *SeriesWindow) Evict(now time.Time) int {
	cutoff := now.Add(-w.duration).UnixMilli()
	idx := sort.Search(len(w.points), func(i int) bool {
		return w.points[i].Timestamp >= cutoff
	})
	if idx == 0 {
		return 0
	}
	// Copy so the evicted prefix can be collected.
	w.points = append([]SamplePoint(nil), w.points[idx:]...)
	return idx
}

// Points returns a copy of the buffered points in ascending order.
func (w *SeriesWindow) Points() []SamplePoint {
	out := make([]SamplePoint, len(w.points))
	copy(out, w.points)
	return out
}

// Names returns the known series names in legend order.
func (w *SeriesWindow) Names() []string {
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// Len returns the number of buffered points.
func (w *SeriesWindow) Len() int {
	return len(w.points)
}

// Latest returns the most recent point.
func (w *SeriesWindow) Latest() (SamplePoint, bool) {
	if len(w.points) == 0 {
		return SamplePoint{}, false
	}
	return w.points[len(w.points)-1], true
}

// deriveNames returns the series names of p. Names already present in prev
// keep their relative order so colors stay stable; new names follow, sorted.
func deriveNames(prev []string, p SamplePoint) []string {
	names := make([]string, 0, len(p.Values))
	seen := make(map[string]struct{}, len(p.Values))
	for _, name := range prev {
		if _, ok := p.Values[name]; ok {
			names = append(names, name)
			seen[name] = struct{}{}
		}
	}
	for _, name := range p.Names() {
		if _, ok := seen[name]; !ok {
			names = append(names, name)
		}
	}
	return names
}
