// Package tui renders the shell's windows in the terminal and asks the
// close confirmations.
package tui

import (
	"context"
	"errors"
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/shell"
	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/window"
)

// ErrNotRunning is returned by Ask when the terminal UI is not running.
var ErrNotRunning = errors.New("terminal UI not running")

// Shell is the part of the running shell the terminal UI drives.
type Shell interface {
	HandleTray(ev tray.Event) error
	RequestClose(label string) error
	TriggerShortcut(accel string) error
	ToggleMenu(label string) error
	AttachSurface(label string) error
}

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu sync.Mutex
	p  *tea.Program
}

func (r *programRef) Set(p *tea.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = p
}

func (r *programRef) Send(msg tea.Msg) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Running reports whether a program is set.
func (r *programRef) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.p != nil
}

// Quit asks the program to exit.
func (r *programRef) Quit() {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// UI is the terminal front-end. It renders shell views and answers close
// confirmations, so it serves as both Presenter and Prompter.
type UI struct {
	ref *programRef

	mu     sync.Mutex
	latest *shell.View
	wake   chan struct{}
}

// New creates a terminal UI. Nothing is drawn until Run.
func New() *UI {
	return &UI{
		ref:  &programRef{},
		wake: make(chan struct{}, 1),
	}
}

// Render keeps the latest view for the program. It never blocks; views
// that arrive faster than the terminal redraws are coalesced.
func (u *UI) Render(v shell.View) {
	u.mu.Lock()
	u.latest = &v
	u.mu.Unlock()
	u.poke()
}

func (u *UI) poke() {
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *UI) pump(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-u.wake:
		}
		u.mu.Lock()
		v := u.latest
		u.mu.Unlock()
		if v != nil {
			u.ref.Send(viewMsg{view: *v})
		}
	}
}

// Ask shows a confirmation overlay and waits for the answer.
func (u *UI) Ask(ctx context.Context, label, title, message string) (bool, error) {
	if !u.ref.Running() {
		return false, ErrNotRunning
	}
	req := &confirmRequest{
		label:   label,
		title:   title,
		message: message,
		answer:  make(chan bool, 1),
	}
	u.ref.Send(confirmMsg{req: req})

	select {
	case ok := <-req.answer:
		return ok, nil
	case <-ctx.Done():
		u.ref.Send(withdrawMsg{req: req})
		return false, ctx.Err()
	}
}

// Quit stops the program if it is running.
func (u *UI) Quit() {
	u.ref.Quit()
}

// Run draws the shell until the program quits or ctx is cancelled. Both
// windows attach as surfaces once the program is up.
func (u *UI) Run(ctx context.Context, sh Shell, b *bridge.Bridge) error {
	model := NewModel(sh, b)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	u.ref.Set(p)
	defer u.ref.Clear()

	subs := subscribe(b, u.ref)
	defer func() {
		for _, sub := range subs {
			sub.Cancel()
		}
	}()

	for _, label := range []string{window.Main, window.Splash} {
		if err := sh.AttachSurface(label); err != nil {
			log.Printf("[tui] Failed to attach %q: %v", label, err)
		}
	}

	done := make(chan struct{})
	defer close(done)
	go u.pump(done)
	u.poke()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// subscribe forwards the events each window listens for into the program.
func subscribe(b *bridge.Bridge, ref *programRef) []*bridge.Subscription {
	listen := map[string][]string{
		window.Main:   {shell.EventIdentity, shell.EventRustEvent, shell.EventSettingsChanged},
		window.Splash: {shell.EventDaemonStatus, shell.EventRustEvent},
	}
	var subs []*bridge.Subscription
	for label, names := range listen {
		for _, name := range names {
			subs = append(subs, b.On(label, name, func(ev bridge.Event) {
				ref.Send(bridgeEventMsg{event: ev})
			}))
		}
	}
	return subs
}
