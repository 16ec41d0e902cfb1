// Package styles provides centralized Lipgloss styling for the kpulse UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// SeriesColor pairs a legend color with the nearest 256-color index used
// by the plot.
type SeriesColor struct {
	Hex  lipgloss.Color
	Ansi asciigraph.AnsiColor
}

// Palette assigns series colors by position in the series name list.
var Palette = []SeriesColor{
	{lipgloss.Color("#97BF69"), asciigraph.YellowGreen},
	{lipgloss.Color("#F2CC0C"), asciigraph.Gold},
	{lipgloss.Color("#FF8C00"), asciigraph.DarkOrange},
	{lipgloss.Color("#b877d9"), asciigraph.MediumOrchid},
	{lipgloss.Color("#FF3366"), asciigraph.DeepPink},
	{lipgloss.Color("#4682B4"), asciigraph.SteelBlue},
	{lipgloss.Color("#00BFFF"), asciigraph.DeepSkyBlue},
}

// SeriesColorAt returns the palette entry for series index i.
func SeriesColorAt(i int) SeriesColor {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// UI element colors. SetTheme swaps them.
var (
	ColorBorder   = lipgloss.Color("240") // Gray - all borders
	ColorSelected = lipgloss.Color("6")   // Cyan - selected panel border
	ColorAccent   = lipgloss.Color("6")   // Cyan - titles, highlights
	ColorMuted    = lipgloss.Color("8")   // Dark gray - secondary text
	ColorText     = lipgloss.Color("252")
	ColorWarning  = lipgloss.Color("11")
	ColorError    = lipgloss.Color("9")

	// AxisColor and LabelColor tint the plot axis and its labels.
	AxisColor  = asciigraph.DarkGray
	LabelColor = asciigraph.LightGray
)
