package components

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/willibrandon/kpulse/internal/metrics"
)

func samplePoint(ms int64, kv ...any) metrics.SamplePoint {
	p := metrics.NewSamplePointAt(ms)
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i].(string), kv[i+1].(float64))
	}
	return p
}

func liveSnapshot() metrics.Snapshot {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var points []metrics.SamplePoint
	for i := 0; i <= 30; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Second).UnixMilli()
		points = append(points, samplePoint(ts, "ns-a", 0.1234, "ns-b", 0.05))
	}
	return metrics.Snapshot{
		ChartID:    "cpu",
		Generation: 1,
		State:      metrics.StateLive,
		Window:     5 * time.Minute,
		Points:     points,
		Names:      []string{"ns-a", "ns-b"},
		Ticks:      metrics.MinuteTicks(points, time.UTC),
	}
}

func TestResample_HoldsLastValue(t *testing.T) {
	points := []metrics.SamplePoint{
		samplePoint(0),
		samplePoint(1000, "a", 1.0),
		samplePoint(2000, "a", 2.0, "b", 5.0),
	}

	series := resample(points, []string{"a", "b"}, 0, 2000, 5, metrics.UnitRaw)

	if len(series) != 2 || len(series[0]) != 5 {
		t.Fatalf("expected 2x5 grid, got %d series", len(series))
	}
	// columns sit at 0, 500, 1000, 1500, 2000
	wantA := []float64{math.NaN(), math.NaN(), 1, 1, 2}
	for i, want := range wantA {
		got := series[0][i]
		if math.IsNaN(want) != math.IsNaN(got) || (!math.IsNaN(want) && want != got) {
			t.Errorf("a[%d] = %v, want %v", i, got, want)
		}
	}
	for i := 0; i < 4; i++ {
		if !math.IsNaN(series[1][i]) {
			t.Errorf("b[%d] = %v, want gap", i, series[1][i])
		}
	}
	if series[1][4] != 5 {
		t.Errorf("b[4] = %v, want 5", series[1][4])
	}
}

func TestResample_BeforeFirstPointIsGap(t *testing.T) {
	points := []metrics.SamplePoint{samplePoint(60_000, "a", 0.5)}

	series := resample(points, []string{"a"}, 0, 60_000, 4, metrics.UnitPercent)

	for i := 0; i < 3; i++ {
		if !math.IsNaN(series[0][i]) {
			t.Errorf("column %d = %v, want gap", i, series[0][i])
		}
	}
	if series[0][3] != 50 {
		t.Errorf("last column = %v, want 50 (scaled)", series[0][3])
	}
	if !anyFinite(series) {
		t.Error("expected a finite value")
	}
	if anyFinite(resample(points, []string{"missing"}, 0, 60_000, 4, metrics.UnitRaw)) {
		t.Error("expected no finite value for an unknown series")
	}
}

func TestTickRow_SkipsOverlaps(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	start := base.UnixMilli()
	end := base.Add(10 * time.Minute).UnixMilli()
	ticks := []int64{
		start,
		base.Add(time.Minute).UnixMilli(),
		base.Add(5 * time.Minute).UnixMilli(),
	}

	row := tickRow(ticks, start, end, 41, time.UTC)

	if !strings.HasPrefix(row, "10:00") {
		t.Errorf("expected row to start with 10:00, got %q", row)
	}
	if strings.Contains(row, "10:01") {
		t.Errorf("10:01 overlaps 10:00 and should be skipped: %q", row)
	}
	if idx := strings.Index(row, "10:05"); idx != 20 {
		t.Errorf("expected 10:05 at column 20, got %d in %q", idx, row)
	}
}

func TestAxisGutter(t *testing.T) {
	graph := " 12.00 ┤ ╭─\n  6.00 ┼─╯"
	if got := axisGutter(graph); got != 8 {
		t.Errorf("expected gutter 8, got %d", got)
	}
	if got := axisGutter("no axis"); got != 0 {
		t.Errorf("expected gutter 0, got %d", got)
	}
}

func TestSeriesChart_DropsOlderGeneration(t *testing.T) {
	chart := NewSeriesChart(ChartConfig{ID: "cpu"})

	newer := liveSnapshot()
	newer.Generation = 3
	if !chart.SetSnapshot(newer) {
		t.Fatal("expected first snapshot to be accepted")
	}

	older := liveSnapshot()
	older.Generation = 2
	older.Points = nil
	if chart.SetSnapshot(older) {
		t.Error("expected older generation to be rejected")
	}
	if len(chart.Snapshot().Points) == 0 {
		t.Error("rejected snapshot replaced the chart data")
	}
}

func TestSeriesChart_ViewPlaceholders(t *testing.T) {
	chart := NewSeriesChart(ChartConfig{ID: "cpu", Title: "CPU", Width: 60, Height: 12})

	if view := ansi.Strip(chart.View()); !strings.Contains(view, "Not configured") {
		t.Errorf("expected unconfigured placeholder, got:\n%s", view)
	}

	chart.SetLoadingIndicator("*")
	chart.SetSnapshot(metrics.Snapshot{State: metrics.StateBackfilling, Window: 30 * time.Minute})
	if view := ansi.Strip(chart.View()); !strings.Contains(view, "Loading 30m of history") {
		t.Errorf("expected loading placeholder, got:\n%s", view)
	}

	// Live but every reading missing
	chart.SetSnapshot(metrics.Snapshot{
		State:  metrics.StateLive,
		Window: 5 * time.Minute,
		Points: []metrics.SamplePoint{samplePoint(1000), samplePoint(2000)},
		Names:  []string{"a"},
	})
	if view := ansi.Strip(chart.View()); !strings.Contains(view, "Waiting for data") {
		t.Errorf("expected waiting placeholder, got:\n%s", view)
	}
}

func TestSeriesChart_ViewRendersGraph(t *testing.T) {
	chart := NewSeriesChart(ChartConfig{
		ID:       "cpu",
		Title:    "CPU Usage",
		Unit:     metrics.UnitPercent,
		Width:    90,
		Height:   14,
		Location: time.UTC,
	})
	chart.SetSnapshot(liveSnapshot())

	view := ansi.Strip(chart.View())

	for _, want := range []string{"CPU Usage", "5m", "live", "ns-a 12.34 %", "ns-b 5.00 %", "10:00", "10:05"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q, got:\n%s", want, view)
		}
	}
	if got := len(strings.Split(view, "\n")); got != 14 {
		t.Errorf("expected 14 rendered rows, got %d", got)
	}
}
