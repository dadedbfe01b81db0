package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harbor-io/harbor/internal/daemon"
	"github.com/harbor-io/harbor/internal/shell"
	"github.com/harbor-io/harbor/internal/tray"
)

func renderHeader(v shell.View, active string, width int) string {
	title := "Harbor"
	if w, ok := v.Window(active); ok {
		title = w.Title
	}

	dot := lipgloss.NewStyle().Foreground(colorCyan).Render("●")
	name := lipgloss.NewStyle().Bold(true).Render(title)

	trayLabel := ""
	for _, it := range v.Tray {
		if it.ID == tray.ItemToggle {
			trayLabel = hintStyle.Render("tray: " + it.Label)
		}
	}

	left := fmt.Sprintf(" %s %s", dot, name)
	right := fmt.Sprintf("%s  %s ", trayLabel, renderDaemonBadge(v))

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderDaemonBadge(v shell.View) string {
	switch {
	case v.Ready:
		return badgeReadyStyle.Render("● Ready")
	case v.Daemon.State == daemon.StateFailed:
		return badgeFailedStyle.Render("● Failed")
	case v.Daemon.State == daemon.StateRunning, v.Daemon.State == daemon.StateStarting:
		return badgeStartingStyle.Render("● Starting")
	default:
		return badgeIdleStyle.Render("● Stopped")
	}
}
