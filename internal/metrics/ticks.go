package metrics

import "time"

const (
	tickLabelFormat    = "15:04"
	tooltipLabelFormat = "15:04:05"
)

// MinuteTicks returns, in ascending order, the timestamp of the first point
// seen for each distinct (hour, minute) pair in loc. It deduplicates
// sub-minute samples without a fixed calendar grid.
func MinuteTicks(points []SamplePoint, loc *time.Location) []int64 {
	if loc == nil {
		loc = time.Local
	}

	type hm struct{ hour, minute int }
	seen := make(map[hm]struct{})
	var ticks []int64
	for _, p := range points {
		t := time.UnixMilli(p.Timestamp).In(loc)
		key := hm{t.Hour(), t.Minute()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ticks = append(ticks, p.Timestamp)
	}
	return ticks
}

// FormatTick renders an axis tick label (HH:MM).
func FormatTick(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(tickLabelFormat)
}

// FormatTooltip renders a point timestamp at second resolution (HH:MM:SS).
func FormatTooltip(ms int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(tooltipLabelFormat)
}
