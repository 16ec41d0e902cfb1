package styles

import "github.com/charmbracelet/lipgloss"

// Panel styles
var (
	// PanelStyle frames a chart panel.
	PanelStyle lipgloss.Style

	// PanelSelectedStyle frames the panel that receives window keys.
	PanelSelectedStyle lipgloss.Style

	// PanelTitleStyle is for the chart title.
	PanelTitleStyle lipgloss.Style

	// PanelCaptionStyle is for the window and state next to the title.
	PanelCaptionStyle lipgloss.Style

	// AxisLabelStyle is for the HH:MM labels under the plot.
	AxisLabelStyle lipgloss.Style

	// PlaceholderStyle is for the message shown before data arrives.
	PlaceholderStyle lipgloss.Style
)

// Status bar styles
var (
	StatusBarStyle   lipgloss.Style
	StatusTitleStyle lipgloss.Style
	StatusTextStyle  lipgloss.Style
	StatusWarnStyle  lipgloss.Style
	StatusErrorStyle lipgloss.Style
)

// FooterHintStyle is for keyboard hints.
var FooterHintStyle lipgloss.Style

// Overlay styles for the help and debug dialogs
var (
	DialogStyle      lipgloss.Style
	DialogTitleStyle lipgloss.Style
	DialogMutedStyle lipgloss.Style
)

func init() {
	rebuild()
}

// rebuild derives every style from the current colors.
func rebuild() {
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)
	PanelSelectedStyle = PanelStyle.
		BorderForeground(ColorSelected)
	PanelTitleStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)
	PanelCaptionStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	AxisLabelStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	PlaceholderStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Align(lipgloss.Center, lipgloss.Center)

	StatusBarStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(ColorBorder)
	StatusTitleStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)
	StatusTextStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	StatusWarnStyle = lipgloss.NewStyle().
		Foreground(ColorWarning)
	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError)

	FooterHintStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	DialogStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSelected).
		Padding(1, 2)
	DialogTitleStyle = lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true)
	DialogMutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
}

// LegendStyle returns the style of the series at index i.
func LegendStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(SeriesColorAt(i).Hex)
}
