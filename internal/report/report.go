// Package report renders query results, archived samples and the effective
// configuration for the command line.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"

	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/ui/highlight"
)

// Color formatters
var (
	prefixFormat  = color.New(color.FgHiBlack).SprintFunc()
	mutedFormat   = color.New(color.FgHiBlack).SprintFunc()
	boldFormat    = color.New(color.FgHiWhite).SprintFunc()
	warningFormat = color.New(color.FgHiYellow).SprintFunc()
	outputFormat  = color.New(color.FgCyan).SprintFunc()
)

const ruleWidth = 60

// Query describes one executed query and its pivoted result.
type Query struct {
	Backend  string
	Endpoint string
	Expr     string
	Label    string
	// Start and End are zero for instant queries.
	Start   time.Time
	End     time.Time
	Step    time.Duration
	Elapsed time.Duration
	Points  []metrics.SamplePoint
	Unit    metrics.Unit
}

// Names returns the union of series names across all points, sorted.
func (q Query) Names() []string {
	return unionNames(q.Points)
}

// WriteSummary renders the query header: where it ran, the highlighted
// expression wrapped to width, and result counts.
func WriteSummary(w io.Writer, q Query, width uint, theme string) error {
	if width < 20 {
		width = 20
	}

	fmt.Fprintf(w, "%s\n", boldFormat("Query"))
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", ruleWidth))

	fmt.Fprintf(w, "%s %s\n", mutedFormat("Backend:"), q.Backend)
	fmt.Fprintf(w, "%s %s\n", mutedFormat("Endpoint:"), q.Endpoint)
	if q.Label != "" {
		fmt.Fprintf(w, "%s %s\n", mutedFormat("Label:"), q.Label)
	}
	if !q.Start.IsZero() {
		fmt.Fprintf(w, "%s %s → %s %s\n",
			mutedFormat("Range:"),
			q.Start.Format("2006-01-02 15:04:05"),
			q.End.Format("15:04:05"),
			mutedFormat(fmt.Sprintf("(step %s)", q.Step)))
	}

	fmt.Fprintf(w, "%s\n", mutedFormat("Expression:"))
	style := highlight.StyleFor(theme)
	for _, line := range strings.Split(wordwrap.WrapString(q.Expr, width-4), "\n") {
		fmt.Fprintf(w, "%s %s\n", prefixFormat("│"), highlight.PromQLWithStyle(line, style))
	}

	names := q.Names()
	result := fmt.Sprintf("%d series, %d points", len(names), len(q.Points))
	if len(names) == 0 {
		result = warningFormat(result)
	} else {
		result = outputFormat(result)
	}
	fmt.Fprintf(w, "%s %s %s\n", mutedFormat("Result:"), result,
		mutedFormat(fmt.Sprintf("in %s", q.Elapsed.Round(time.Millisecond))))
	_, err := fmt.Fprintln(w)
	return err
}

func unionNames(points []metrics.SamplePoint) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, p := range points {
		for _, n := range p.Names() {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	slices.Sort(names)
	return names
}
