package styles

import (
	"testing"

	"github.com/guptarohit/asciigraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesColorAt_Wraps(t *testing.T) {
	assert.Len(t, Palette, 7)
	assert.Equal(t, Palette[0], SeriesColorAt(7))
	assert.Equal(t, Palette[3], SeriesColorAt(10))
	assert.Equal(t, asciigraph.YellowGreen, SeriesColorAt(0).Ansi)
}

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { _ = SetTheme(ThemeDark) })

	require.NoError(t, SetTheme(ThemeLight))
	assert.Equal(t, ThemeLight, Theme())
	assert.Equal(t, ColorAccent, PanelTitleStyle.GetForeground())

	assert.Error(t, SetTheme("solarized"))
	assert.Equal(t, ThemeLight, Theme())
}
