package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// GetFangScheme returns the same light/dark-aware color scheme fang uses.
func GetFangScheme() fang.ColorScheme {
	// This mirrors fang.mustColorscheme(DefaultColorScheme)
	isDark := lipgloss.HasDarkBackground(os.Stdin, os.Stdout)
	return fang.DefaultColorScheme(lipgloss.LightDark(isDark))
}

// UI layout constants.
const (
	defaultMargin  = 2
	defaultPadding = 2
	nameWidth      = 10
)

var (
	okColor   = lipgloss.Color("#3fb950") //nolint:gochecknoglobals // Fixed palette.
	failColor = lipgloss.Color("#f85149") //nolint:gochecknoglobals // Fixed palette.
)

// GetBlockStyles generates reusable styles for titles and code block elements.
// Returns two lipgloss.Style objects: one for titles and one for blocks.
func GetBlockStyles() (lipgloss.Style, lipgloss.Style) {
	colorScheme := GetFangScheme()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorScheme.QuotedString).
		Transform(strings.ToUpper).
		Padding(1, 0).
		Margin(0, defaultMargin)

	blockStyle := lipgloss.NewStyle().
		Background(colorScheme.Codeblock).
		Foreground(colorScheme.Base).
		MarginLeft(defaultMargin).
		Padding(1, defaultPadding)
	return titleStyle, blockStyle
}

// SummaryRow is one line of a build summary.
type SummaryRow struct {
	Step     string
	Written  int
	Duration time.Duration
	Err      error
	Skipped  bool
}

// RenderSummary renders a titled block with one line per step.
func RenderSummary(title string, rows []SummaryRow) string {
	titleStyle, blockStyle := GetBlockStyles()
	nameStyle := lipgloss.NewStyle().Foreground(GetFangScheme().Flag).Width(nameWidth)
	okStyle := lipgloss.NewStyle().Foreground(okColor)
	failStyle := lipgloss.NewStyle().Foreground(failColor).Bold(true)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var status string
		switch {
		case row.Skipped:
			status = failStyle.Render("skipped")
		case row.Err != nil:
			status = failStyle.Render("failed: " + firstLine(row.Err.Error()))
		default:
			status = okStyle.Render(fmt.Sprintf("%d written", row.Written))
		}
		lines = append(lines, fmt.Sprintf("%s %8s  %s",
			nameStyle.Render(row.Step), row.Duration.Round(time.Millisecond), status))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		blockStyle.Render(strings.Join(lines, "\n")),
	)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx] + " ..."
	}
	return s
}
