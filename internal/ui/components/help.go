package components

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/willibrandon/kpulse/internal/ui/styles"
)

// HelpText renders the key bindings either as a one-line footer or as the
// full help overlay.
type HelpText struct {
	model  help.Model
	keys   help.KeyMap
	width  int
	height int
}

// NewHelp creates a new help component
func NewHelp(keys help.KeyMap) *HelpText {
	m := help.New()
	m.Styles.ShortKey = styles.FooterHintStyle.Bold(true)
	m.Styles.ShortDesc = styles.FooterHintStyle
	m.Styles.ShortSeparator = styles.FooterHintStyle
	m.Styles.FullKey = styles.DialogTitleStyle
	m.Styles.FullDesc = lipgloss.NewStyle().Foreground(styles.ColorText)
	m.Styles.FullSeparator = styles.DialogMutedStyle
	return &HelpText{model: m, keys: keys}
}

// SetSize sets the size of the help component
func (h *HelpText) SetSize(width, height int) {
	h.width = width
	h.height = height
	h.model.Width = width
}

// ShortHelp returns the footer line.
func (h *HelpText) ShortHelp() string {
	h.model.ShowAll = false
	return h.model.View(h.keys)
}

// View renders the full help screen as a centered dialog.
func (h *HelpText) View() string {
	h.model.ShowAll = true
	body := h.model.View(h.keys)
	h.model.ShowAll = false

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.DialogTitleStyle.Render("Keyboard Shortcuts"),
		"",
		body,
		"",
		styles.DialogMutedStyle.Render("Press ? or Esc to close"),
	)
	dialog := styles.DialogStyle.Render(content)
	if h.width > 0 {
		dialog = lipgloss.Place(h.width, h.height, lipgloss.Center, lipgloss.Center, dialog)
	}
	return dialog
}
