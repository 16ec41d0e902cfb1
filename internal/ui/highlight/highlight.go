// Package highlight renders PromQL expressions with terminal colors.
package highlight

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/chroma/v2/styles"
)

const (
	lexer     = "promql"
	formatter = "terminal256"

	// StyleDark and StyleLight are the registered kpulse chroma styles.
	StyleDark  = "kpulse"
	StyleLight = "kpulse-light"
)

func init() {
	styles.Register(darkStyle)
	styles.Register(lightStyle)
}

var darkStyle = chroma.MustNewStyle(StyleDark, chroma.StyleEntries{
	chroma.Text:          "#eaeaea",
	chroma.Error:         "#ff5555 bold",
	chroma.Keyword:       "bold #50fa7b", // by, without, on, offset
	chroma.Operator:      "#ff79c6",
	chroma.NameFunction:  "#8be9fd", // rate, sum, histogram_quantile
	chroma.NameVariable:  "#f8f8f2", // metric names
	chroma.NameLabel:     "#bd93f9",
	chroma.NameAttribute: "#bd93f9",
	chroma.String:        "#f1fa8c",
	chroma.LiteralDate:   "#ffb86c", // [5m] durations
	chroma.Number:        "#bd93f9",
	chroma.Comment:       "italic #6272a4",
	chroma.Punctuation:   "#6c7086",
})

var lightStyle = chroma.MustNewStyle(StyleLight, chroma.StyleEntries{
	chroma.Text:          "#383a42",
	chroma.Error:         "#e45649 bold",
	chroma.Keyword:       "bold #50a14f",
	chroma.Operator:      "#a626a4",
	chroma.NameFunction:  "#0184bc",
	chroma.NameVariable:  "#383a42",
	chroma.NameLabel:     "#986801",
	chroma.NameAttribute: "#986801",
	chroma.String:        "#50a14f",
	chroma.LiteralDate:   "#c18401",
	chroma.Number:        "#986801",
	chroma.Comment:       "italic #a0a1a7",
	chroma.Punctuation:   "#a0a1a7",
})

// PromQL highlights expr with the dark style.
// It returns expr unchanged if highlighting fails.
func PromQL(expr string) string {
	return PromQLWithStyle(expr, StyleDark)
}

// PromQLWithStyle highlights expr with a named chroma style.
func PromQLWithStyle(expr, style string) string {
	if expr == "" {
		return ""
	}
	if style == "" {
		style = StyleDark
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, expr, lexer, formatter, style); err != nil {
		return expr
	}
	return strings.TrimRight(buf.String(), "\n")
}

// StyleFor maps a UI theme name to the matching chroma style.
func StyleFor(theme string) string {
	if theme == "light" {
		return StyleLight
	}
	return StyleDark
}
