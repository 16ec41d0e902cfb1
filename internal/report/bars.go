package report

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/pterm/pterm"

	"github.com/willibrandon/kpulse/internal/metrics"
)

const (
	maxBarLabel = 32
	// barScale is the integer resolution bars are drawn at, pterm bars
	// being int valued.
	barScale = 1000
)

// WriteBars renders the series of one instant sample as a horizontal bar
// chart, longest bar first. Labels carry the formatted value.
func WriteBars(w io.Writer, p metrics.SamplePoint, unit metrics.Unit, width int) error {
	names := p.Names()
	if len(names) == 0 {
		_, err := fmt.Fprintln(w, mutedFormat("no series"))
		return err
	}

	peak := 0.0
	for _, n := range names {
		v, _ := p.Get(n)
		peak = math.Max(peak, math.Abs(v))
	}

	// Largest first, keeping name order for ties.
	sorted := slices.Clone(names)
	slices.SortStableFunc(sorted, func(a, b string) int {
		va, _ := p.Get(a)
		vb, _ := p.Get(b)
		return cmp.Compare(vb, va)
	})

	labelWidth := 0
	labels := make([]string, len(sorted))
	for i, n := range sorted {
		v, _ := p.Get(n)
		labels[i] = runewidth.Truncate(n, maxBarLabel, "…") + " " + unit.Format(v)
		labelWidth = max(labelWidth, runewidth.StringWidth(labels[i]))
	}

	bars := make(pterm.Bars, 0, len(sorted))
	for i, n := range sorted {
		v, _ := p.Get(n)
		value := 0
		if peak > 0 {
			value = int(math.Round(math.Abs(v) / peak * barScale))
		}
		bars = append(bars, pterm.Bar{
			Label: labels[i] + strings.Repeat(" ", labelWidth-runewidth.StringWidth(labels[i])),
			Value: value,
		})
	}

	barWidth := max(width-labelWidth-4, 10)
	chart, err := pterm.DefaultBarChart.
		WithBars(bars).
		WithHorizontal(true).
		WithShowValue(false).
		WithWidth(barWidth).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(chart, "\n"))
	return err
}
