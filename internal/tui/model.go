package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/tidwall/gjson"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/shell"
	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/window"
)

// Model is the root Bubbletea model for the TUI.
type Model struct {
	shell  Shell
	bridge *bridge.Bridge

	// Latest shell snapshot
	view     shell.View
	haveView bool

	// Data received over the bridge
	peerID    string
	agent     string
	daemonErr string
	lastReply string
	replies   int

	// UI state
	activeOverlay int
	prompts       []*confirmRequest
	spinner       spinner.Model
	width         int
	height        int

	// Status display
	err    error
	notice string
}

// NewModel creates the initial TUI model.
func NewModel(sh Shell, b *bridge.Bridge) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorCyan)
	return Model{
		shell:   sh,
		bridge:  b,
		spinner: sp,
	}
}

// Init returns the initial commands.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update processes messages and returns an updated model and commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case viewMsg:
		m.view = msg.view
		m.haveView = true
		return m, nil

	case bridgeEventMsg:
		cmd := m.handleEvent(msg.event)
		return m, cmd

	case confirmMsg:
		m.prompts = append(m.prompts, msg.req)
		m.activeOverlay = overlayConfirm
		return m, nil

	case withdrawMsg:
		m.withdraw(msg.req)
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd

	case ErrorMsg:
		m.err = msg.Err
		return m, clearErrorAfter(5 * time.Second)

	case ClearErrorMsg:
		m.err = nil
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		return m, nil
	}

	return m, nil
}

func (m *Model) handleEvent(ev bridge.Event) tea.Cmd {
	switch ev.Name {
	case shell.EventIdentity:
		m.peerID = gjson.GetBytes(ev.Payload, "ID").String()
		m.agent = gjson.GetBytes(ev.Payload, "AgentVersion").String()

	case shell.EventDaemonStatus:
		state := gjson.GetBytes(ev.Payload, "state").String()
		reason := gjson.GetBytes(ev.Payload, "reason").String()
		m.daemonErr = fmt.Sprintf("%s: %s", state, reason)

	case shell.EventRustEvent:
		m.lastReply = gjson.GetBytes(ev.Payload, "data").String()
		m.replies++

	case shell.EventSettingsChanged:
		m.notice = fmt.Sprintf("Settings reloaded (daemon on exit: %s)", gjson.GetBytes(ev.Payload, "on_exit").String())
		return clearNoticeAfter(3 * time.Second)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.activeOverlay == overlayConfirm {
		switch {
		case key.Matches(msg, confirmKeys.Yes):
			m.answer(true)
		case key.Matches(msg, confirmKeys.No):
			m.answer(false)
		}
		return nil
	}

	if m.activeOverlay == overlayHelp {
		if key.Matches(msg, helpCloseKeys) {
			m.activeOverlay = overlayNone
		}
		return nil
	}

	sh := m.shell
	active := m.activeLabel()

	switch {
	case key.Matches(msg, globalKeys.Quit):
		return shellCmd(func() error {
			return sh.HandleTray(tray.Event{Kind: tray.MenuItemClick, ID: tray.ItemExit})
		})
	case key.Matches(msg, globalKeys.Help):
		m.activeOverlay = overlayHelp
	case key.Matches(msg, globalKeys.Toggle):
		return shellCmd(func() error {
			return sh.HandleTray(tray.Event{Kind: tray.MenuItemClick, ID: tray.ItemToggle})
		})
	case key.Matches(msg, globalKeys.Open):
		return shellCmd(func() error {
			return sh.HandleTray(tray.Event{Kind: tray.LeftClick})
		})
	case key.Matches(msg, globalKeys.Icon):
		return shellCmd(func() error {
			return sh.HandleTray(tray.Event{Kind: tray.MenuItemClick, ID: tray.ItemIcon})
		})
	case key.Matches(msg, globalKeys.Retitle):
		return shellCmd(func() error { return sh.TriggerShortcut(shell.ShortcutRetitle) })
	case key.Matches(msg, globalKeys.Close):
		if active != "" {
			return shellCmd(func() error { return sh.RequestClose(active) })
		}
	case key.Matches(msg, globalKeys.Menu):
		if active != "" {
			return shellCmd(func() error { return sh.ToggleMenu(active) })
		}
	case key.Matches(msg, globalKeys.Ping):
		if active != "" {
			b := m.bridge
			return shellCmd(func() error { return b.Emit(active, shell.EventIPFSID, nil) })
		}
	}
	return nil
}

// answer resolves the oldest pending confirmation.
func (m *Model) answer(ok bool) {
	if len(m.prompts) == 0 {
		m.activeOverlay = overlayNone
		return
	}
	req := m.prompts[0]
	m.prompts = m.prompts[1:]
	req.answer <- ok
	if len(m.prompts) == 0 {
		m.activeOverlay = overlayNone
	}
}

// withdraw drops a confirmation without answering it.
func (m *Model) withdraw(req *confirmRequest) {
	for i, p := range m.prompts {
		if p == req {
			m.prompts = append(m.prompts[:i:i], m.prompts[i+1:]...)
			break
		}
	}
	if len(m.prompts) == 0 && m.activeOverlay == overlayConfirm {
		m.activeOverlay = overlayNone
	}
}

// activeLabel is the window drawn in front: main when it is on screen,
// otherwise the splash.
func (m Model) activeLabel() string {
	for _, label := range []string{window.Main, window.Splash} {
		if w, ok := m.view.Window(label); ok && w.Visible {
			return label
		}
	}
	return ""
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	active := m.activeLabel()
	w, _ := m.view.Window(active)

	header := renderHeader(m.view, active, m.width)
	footer := ""
	if active == "" || w.MenuVisible {
		footer = renderStatusBar(&m, m.width)
	}

	var body string
	switch {
	case !m.haveView:
		body = m.spinner.View() + " Starting..."
	case active == window.Main:
		body = m.renderMain()
	case active == window.Splash:
		body = m.renderSplash()
	default:
		body = hintStyle.Render("All windows are hidden. Press t to show the main window, Ctrl+q to quit.")
	}

	bodyHeight := m.height - lipgloss.Height(header)
	if footer != "" {
		bodyHeight -= lipgloss.Height(footer)
	}
	body = fitBody(body, m.width, bodyHeight)

	parts := []string{header, body}
	if footer != "" {
		parts = append(parts, footer)
	}
	base := lipgloss.JoinVertical(lipgloss.Left, parts...)

	switch m.activeOverlay {
	case overlayConfirm:
		if len(m.prompts) > 0 {
			return renderOverlay(base, renderConfirm(m.prompts[0], m.width), m.width, m.height)
		}
	case overlayHelp:
		return renderOverlay(base, renderHelp(m.width), m.width, m.height)
	}
	return base
}

func (m Model) renderSplash() string {
	failure := m.daemonErr
	if failure == "" && m.view.Failure != nil {
		// The daemon-status event can go out before the program subscribes.
		failure = fmt.Sprintf("%s: %s", m.view.Failure.State, m.view.Failure.Reason)
	}
	if failure != "" {
		return strings.Join([]string{
			errorTextStyle.Render("The IPFS daemon could not be started."),
			"",
			failure,
			"",
			hintStyle.Render("Check the daemon logs with `harbor logs`, then restart Harbor."),
		}, "\n")
	}
	return m.spinner.View() + " Starting the IPFS daemon..."
}

func (m Model) renderMain() string {
	rows := []struct{ label, value string }{
		{"Daemon", m.view.Daemon.State.String()},
		{"PID", pidString(m.view.Daemon.PID)},
		{"Peer ID", orDash(m.peerID)},
		{"Agent", orDash(m.agent)},
	}
	lines := make([]string, 0, len(rows)+4)
	for _, r := range rows {
		lines = append(lines, fieldLabelStyle.Render(r.label)+fieldValueStyle.Render(r.value))
	}

	lines = append(lines, "")
	if m.replies > 0 {
		lines = append(lines, fmt.Sprintf("Backend replied %q (%d)", m.lastReply, m.replies))
	} else {
		lines = append(lines, hintStyle.Render("Press p to ping the backend."))
	}
	if m.notice != "" {
		lines = append(lines, "", noticeStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

// fitBody pads or clips body to exactly height lines of at most width cells.
func fitBody(body string, width, height int) string {
	if height < 1 {
		return ""
	}
	lines := strings.Split(body, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		lines[i] = " " + ansi.Truncate(line, width-2, "…")
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func pidString(pid int) string {
	if pid == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", pid)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
