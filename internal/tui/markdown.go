package tui

import (
	"strings"

	"github.com/charmbracelet/glamour/v2"
	"github.com/charmbracelet/glamour/v2/ansi"
)

// renderMarkdown converts the plugin detail text to styled terminal output
// with proper wrapping.
func renderMarkdown(content string, width int) string {
	r, _ := glamour.NewTermRenderer(
		glamour.WithStyles(detailMarkdownStyle()),
		glamour.WithWordWrap(width),
	)
	if r == nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSuffix(rendered, "\n")
}

// detailMarkdownStyle returns a simple markdown style configuration
func detailMarkdownStyle() ansi.StyleConfig {
	return ansi.StyleConfig{
		Document: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color: stringPtr("#FAFAFA"),
			},
		},
		Paragraph: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{},
		},
		Code: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Color:           stringPtr("#FF79C6"),
				BackgroundColor: stringPtr("#282A36"),
			},
		},
		Emph: ansi.StylePrimitive{
			Italic: boolPtr(true),
		},
		Strong: ansi.StylePrimitive{
			Bold: boolPtr(true),
		},
		Link: ansi.StylePrimitive{
			Color:     stringPtr("#8BE9FD"),
			Underline: boolPtr(true),
		},
		H1: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Bold:  boolPtr(true),
				Color: stringPtr("#FF79C6"),
			},
		},
		H2: ansi.StyleBlock{
			StylePrimitive: ansi.StylePrimitive{
				Bold:  boolPtr(true),
				Color: stringPtr("#BD93F9"),
			},
		},
	}
}

// Helper functions for creating pointers
func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
