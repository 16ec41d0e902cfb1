package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme names accepted by SetTheme.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

var currentTheme = ThemeDark

// SetTheme switches the UI colors and rebuilds the derived styles.
func SetTheme(name string) error {
	switch name {
	case ThemeDark, "":
		ColorBorder = lipgloss.Color("240")
		ColorSelected = lipgloss.Color("6")
		ColorAccent = lipgloss.Color("6")
		ColorMuted = lipgloss.Color("8")
		ColorText = lipgloss.Color("252")
		AxisColor = asciigraph.DarkGray
		LabelColor = asciigraph.LightGray
		currentTheme = ThemeDark
	case ThemeLight:
		ColorBorder = lipgloss.Color("250")
		ColorSelected = lipgloss.Color("25")
		ColorAccent = lipgloss.Color("25")
		ColorMuted = lipgloss.Color("244")
		ColorText = lipgloss.Color("236")
		AxisColor = asciigraph.DimGray
		LabelColor = asciigraph.DarkSlateGray
		currentTheme = ThemeLight
	default:
		return fmt.Errorf("unknown theme %q", name)
	}
	rebuild()
	return nil
}

// Theme returns the active theme name.
func Theme() string {
	return currentTheme
}
