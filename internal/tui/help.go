package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	keys  []helpKey
}

type helpKey struct {
	key  string
	desc string
}

var helpSections = []helpSection{
	{
		title: "Tray",
		keys: []helpKey{
			{"o", "Show and focus the main window"},
			{"t", "Show or hide the main window"},
			{"i", "Change the tray icon"},
			{"Ctrl+q", "Quit Harbor"},
		},
	},
	{
		title: "Window",
		keys: []helpKey{
			{"w", "Close the front window"},
			{"m", "Show or hide the menu bar"},
			{"p", "Ping the backend"},
			{"Alt+1", "Retitle the main window"},
		},
	},
	{
		title: "Confirmation",
		keys: []helpKey{
			{"y / Enter", "Close the window"},
			{"n / Esc", "Keep it open"},
		},
	},
}

// renderHelp renders the help overlay content.
func renderHelp(width int) string {
	maxWidth := 56
	if width-4 < maxWidth {
		maxWidth = width - 4
	}
	if maxWidth < 30 {
		maxWidth = 30
	}

	sections := make([]string, 0, len(helpSections)*6+3)
	sections = append(sections, overlayTitleStyle.Render("Keyboard Shortcuts"))

	for _, sec := range helpSections {
		header := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Render(sec.title)
		sections = append(sections, "", header)

		for _, k := range sec.keys {
			keyCol := lipgloss.NewStyle().
				Width(12).
				Foreground(colorWhite).
				Bold(true).
				Render(k.key)
			sections = append(sections, "  "+keyCol+hintStyle.Render(k.desc))
		}
	}

	sections = append(sections, "", hintStyle.Render("Press Esc or ? to close"))
	return overlayStyle.Width(maxWidth).Render(strings.Join(sections, "\n"))
}
