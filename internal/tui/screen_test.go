package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hinshun/vt10x"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/shell"
	"github.com/harbor-io/harbor/internal/window"
)

// screen draws a frame into a terminal emulator of the given size and
// returns its rows.
func screen(t *testing.T, frame string, cols, rows int) []string {
	t.Helper()
	vt := vt10x.New(vt10x.WithSize(cols, rows))
	if _, err := vt.Write([]byte(strings.ReplaceAll(frame, "\n", "\r\n"))); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := make([]string, rows)
	for row := 0; row < rows; row++ {
		var sb strings.Builder
		for col := 0; col < cols; col++ {
			ch := vt.Cell(col, row).Char
			if ch == 0 {
				ch = ' '
			}
			sb.WriteRune(ch)
		}
		out[row] = strings.TrimRight(sb.String(), " ")
	}
	return out
}

func TestViewFitsTerminal(t *testing.T) {
	const cols, rows = 60, 16

	hiddenMenu := viewWith(true)
	hiddenMenu.Windows[0].MenuVisible = false

	tests := []struct {
		name       string
		view       shell.View
		wantTitle  string
		wantFooter bool
	}{
		{name: "main", view: viewWith(true), wantTitle: "Harbor", wantFooter: true},
		{name: "splash", view: viewWith(false), wantTitle: "Starting Harbor", wantFooter: true},
		{name: "main without menu", view: hiddenMenu, wantTitle: "Harbor", wantFooter: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(&fakeShell{}, bridge.New())
			m, _ = update(t, m, tea.WindowSizeMsg{Width: cols, Height: rows})
			m, _ = update(t, m, viewMsg{view: tt.view})

			lines := screen(t, m.View(), cols, rows)

			// A frame taller or wider than the terminal scrolls the header away.
			if !strings.Contains(lines[0], tt.wantTitle) {
				t.Errorf("first row = %q, want title %q", lines[0], tt.wantTitle)
			}
			if !strings.Contains(lines[0], "tray: Show") {
				t.Errorf("first row = %q, want the tray label", lines[0])
			}
			if got := strings.Contains(lines[rows-1], "quit"); got != tt.wantFooter {
				t.Errorf("last row = %q, footer shown = %v, want %v", lines[rows-1], got, tt.wantFooter)
			}
		})
	}
}

func TestConfirmOverlayOnScreen(t *testing.T) {
	const cols, rows = 70, 20

	m := NewModel(&fakeShell{}, bridge.New())
	m, _ = update(t, m, tea.WindowSizeMsg{Width: cols, Height: rows})
	m, _ = update(t, m, viewMsg{view: viewWith(true)})
	req := &confirmRequest{label: window.Main, title: "Harbor", message: "Are you sure that you want to close this window?", answer: make(chan bool, 1)}
	m, _ = update(t, m, confirmMsg{req: req})

	lines := screen(t, m.View(), cols, rows)
	found := false
	for _, line := range lines {
		if strings.Contains(line, "Are you sure") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("confirmation not on screen:\n%s", strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[0], "Harbor") {
		t.Errorf("first row = %q, overlay pushed the header away", lines[0])
	}
}
