package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/storage/sqlite"
)

func init() {
	color.NoColor = true
}

func samplePoints() []metrics.SamplePoint {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := metrics.NewSamplePoint(base)
	a.Set("kube-system", 0.25)
	a.Set("default", 0.5)
	b := metrics.NewSamplePoint(base.Add(time.Minute))
	b.Set("default", 0.75)
	return []metrics.SamplePoint{a, b}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWritePoints_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePoints(&buf, samplePoints(), metrics.UnitPercent, time.UTC, FormatTable))

	out := buf.String()
	assert.Contains(t, out, "2024-01-01 10:00:00")
	assert.Contains(t, out, "25.00 %")
	assert.Contains(t, out, "75.00 %")
	// kube-system is missing from the second point
	assert.Contains(t, out, " - ")
}

func TestWritePoints_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePoints(&buf, samplePoints(), metrics.UnitRaw, time.UTC, FormatCSV))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp_ms,default,kube-system", lines[0])
	assert.Equal(t, "1704103200000,0.5,0.25", lines[1])
	assert.Equal(t, "1704103260000,0.75,", lines[2])
}

func TestWritePoints_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePoints(&buf, samplePoints(), metrics.UnitRaw, time.UTC, FormatJSON))

	var out []jsonPoint
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, int64(1704103260000), out[1].Timestamp)
	assert.Equal(t, "2024-01-01T10:01:00Z", out[1].Time)
	assert.Equal(t, map[string]float64{"default": 0.75}, out[1].Values)
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	q := Query{
		Backend:  "http://localhost:9090",
		Endpoint: "query_range",
		Expr:     "sum(rate(container_cpu_usage_seconds_total[1m])) by (namespace)",
		Label:    "namespace",
		Start:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC),
		Step:     10 * time.Second,
		Elapsed:  42 * time.Millisecond,
		Points:   samplePoints(),
	}

	require.NoError(t, WriteSummary(&buf, q, 30, "dark"))

	out := ansi.Strip(buf.String())
	assert.Contains(t, out, "Backend: http://localhost:9090")
	assert.Contains(t, out, "(step 10s)")
	assert.Contains(t, out, "2 series, 2 points")
	assert.Contains(t, out, "container_cpu_usage_seconds_total")
	// the expression is wrapped to the requested width
	assert.Greater(t, strings.Count(out, "│ "), 1)
}

func TestWriteBars(t *testing.T) {
	var buf bytes.Buffer
	p := samplePoints()[0]

	require.NoError(t, WriteBars(&buf, p, metrics.UnitPercent, 80))

	out := ansi.Strip(buf.String())
	first := strings.Index(out, "default 50.00 %")
	second := strings.Index(out, "kube-system 25.00 %")
	require.GreaterOrEqual(t, first, 0, out)
	require.GreaterOrEqual(t, second, 0, out)
	assert.Less(t, first, second, "largest value is drawn first")

	buf.Reset()
	require.NoError(t, WriteBars(&buf, metrics.NewSamplePointAt(0), metrics.UnitRaw, 80))
	assert.Contains(t, buf.String(), "no series")
}

func TestConfigTree(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	cfg.Prometheus.Headers = map[string]string{"authorization": "Bearer secret"}

	out := ConfigTree(cfg)

	assert.Contains(t, out, "kpulse (defaults)")
	assert.Contains(t, out, "http://localhost:9090")
	assert.Contains(t, out, config.CPUQuery)
	assert.Contains(t, out, "****")
	assert.NotContains(t, out, "secret")
}

func TestWriteArchive(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, nil, now))
	assert.Contains(t, buf.String(), "archive is empty")

	buf.Reset()
	require.NoError(t, WriteArchive(&buf, []sqlite.ChartSummary{{
		ChartID: "cpu",
		Rows:    12345,
		Series:  3,
		First:   now.Add(-2 * time.Hour),
		Last:    now.Add(-10 * time.Second),
	}}, now))
	out := buf.String()
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "10 seconds ago")
}
