package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/willibrandon/kpulse/internal/metrics"
)

// Format selects how points are written.
type Format string

// Output formats
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, csv or json)", s)
	}
}

// WritePoints writes time-major points with one column per series.
func WritePoints(w io.Writer, points []metrics.SamplePoint, unit metrics.Unit, loc *time.Location, format Format) error {
	names := unionNames(points)
	switch format {
	case FormatCSV:
		return writePointsCSV(w, points, names)
	case FormatJSON:
		return writePointsJSON(w, points, loc)
	default:
		return writePointsTable(w, points, names, unit, loc)
	}
}

func writePointsTable(w io.Writer, points []metrics.SamplePoint, names []string, unit metrics.Unit, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	headers := append([]string{"Time"}, names...)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(points))
	for _, p := range points {
		row := make([]string, 0, len(names)+1)
		row = append(row, p.Time().In(loc).Format("2006-01-02 15:04:05"))
		for _, n := range names {
			v, ok := p.Get(n)
			if !ok {
				row = append(row, "-")
				continue
			}
			row = append(row, unit.Format(v))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writePointsCSV(w io.Writer, points []metrics.SamplePoint, names []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"timestamp_ms"}, names...)); err != nil {
		return err
	}
	for _, p := range points {
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.FormatInt(p.Timestamp, 10))
		for _, n := range names {
			if v, ok := p.Get(n); ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonPoint struct {
	Timestamp int64              `json:"timestamp"`
	Time      string             `json:"time"`
	Values    map[string]float64 `json:"values"`
}

func writePointsJSON(w io.Writer, points []metrics.SamplePoint, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	out := make([]jsonPoint, 0, len(points))
	for _, p := range points {
		values := p.Values
		if values == nil {
			values = map[string]float64{}
		}
		out = append(out, jsonPoint{
			Timestamp: p.Timestamp,
			Time:      p.Time().In(loc).Format(time.RFC3339),
			Values:    values,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
