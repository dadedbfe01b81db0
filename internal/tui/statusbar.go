package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderStatusBar(m *Model, width int) string {
	if m.err != nil {
		return renderErrorBar(m.err.Error(), width)
	}

	left := " " + getKeyHints(m)
	right := ""
	if n := len(m.prompts); n > 0 {
		right = lipgloss.NewStyle().Foreground(colorYellow).Bold(true).Render("Confirm close") + " "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return statusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func getKeyHints(m *Model) string {
	if m.activeOverlay == overlayConfirm {
		return keyHint("y", "yes") + "  " + keyHint("n", "no")
	}
	if m.activeOverlay == overlayHelp {
		return keyHint("Esc", "close help")
	}

	hints := []string{
		keyHint("Ctrl+q", "quit"),
		keyHint("?", "help"),
		keyHint("t", "show/hide"),
	}
	if m.activeLabel() != "" {
		hints = append(hints,
			keyHint("w", "close"),
			keyHint("m", "menu"),
			keyHint("p", "ping"),
		)
	}
	return strings.Join(hints, "  ")
}

func keyHint(k, desc string) string {
	if k == "" {
		return hintStyle.Render(desc)
	}
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}

func renderErrorBar(msg string, width int) string {
	return statusBarStyle.
		Background(colorRed).
		Width(width).
		Render(" " + msg)
}
