package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colour palette shared by command output.
var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorOK     = lipgloss.Color("#04B575")
	colorWarn   = lipgloss.Color("#FFB86C")
	colorError  = lipgloss.Color("#FF5F87")
	colorMuted  = lipgloss.Color("#6C6C6C")
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle   = lipgloss.NewStyle().Width(24)
)

func heading(s string) string { return headingStyle.Render(s) }

// row renders an indented "label value" line with the label padded.
func row(label string, value any) string {
	return "  " + labelStyle.Render(label) + fmt.Sprint(value)
}
