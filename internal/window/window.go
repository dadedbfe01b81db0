// Package window tracks the presentation surfaces and their visibility.
//
// A Manager is not safe for concurrent use; the shell's dispatch loop owns
// it and is the only goroutine that mutates it.
package window

import (
	"errors"
	"fmt"
)

// Well-known window labels.
const (
	Main   = "main"
	Splash = "splash"
)

// State is a window's lifecycle state.
type State int

// Window states.
const (
	Hidden State = iota
	Visible
	Closing
	Destroyed
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	case Closing:
		return "closing"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var (
	// ErrWindowNotFound indicates no window has the label.
	ErrWindowNotFound = errors.New("window not found")
	// ErrWindowDestroyed indicates the window was already closed.
	ErrWindowDestroyed = errors.New("window destroyed")
	// ErrDuplicateLabel indicates Add was called with a label in use.
	ErrDuplicateLabel = errors.New("duplicate window label")
)

// LookupError reports a failed lookup or operation on a labelled window.
type LookupError struct {
	Label string
	Op    string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Label, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Window is one addressable surface.
type Window struct {
	Label       string
	Title       string
	State       State
	MenuVisible bool
	Focused     bool

	// prior holds the state to restore when a close is declined.
	prior State
}

// Visible reports whether the window is on screen. A window waiting for a
// close confirmation is still on screen if it was before.
func (w *Window) Visible() bool {
	return w.State == Visible || (w.State == Closing && w.prior == Visible)
}

// Info is an immutable copy of a window for presenters.
type Info struct {
	Label       string
	Title       string
	State       State
	Visible     bool
	MenuVisible bool
	Focused     bool
}

// Manager holds the set of windows.
type Manager struct {
	windows map[string]*Window
	order   []string
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{windows: make(map[string]*Window)}
}

// Add registers a window.
func (m *Manager) Add(label, title string, visible bool) error {
	if _, ok := m.windows[label]; ok {
		return &LookupError{Label: label, Op: "add", Err: ErrDuplicateLabel}
	}
	state := Hidden
	if visible {
		state = Visible
	}
	m.windows[label] = &Window{Label: label, Title: title, State: state, MenuVisible: true}
	m.order = append(m.order, label)
	return nil
}

// Get returns a live window by label.
func (m *Manager) Get(label string) (*Window, error) {
	return m.lookup("get", label)
}

func (m *Manager) lookup(op, label string) (*Window, error) {
	w, ok := m.windows[label]
	if !ok {
		return nil, &LookupError{Label: label, Op: op, Err: ErrWindowNotFound}
	}
	if w.State == Destroyed {
		return nil, &LookupError{Label: label, Op: op, Err: ErrWindowDestroyed}
	}
	return w, nil
}

// IsVisible reports whether the window is on screen.
func (m *Manager) IsVisible(label string) (bool, error) {
	w, err := m.lookup("is_visible", label)
	if err != nil {
		return false, err
	}
	return w.Visible(), nil
}

// Show makes a window visible. Showing a window with a pending close only
// updates the state restored if the close is declined.
func (m *Manager) Show(label string) error {
	w, err := m.lookup("show", label)
	if err != nil {
		return err
	}
	if w.State == Closing {
		w.prior = Visible
		return nil
	}
	w.State = Visible
	return nil
}

// Hide hides a window.
func (m *Manager) Hide(label string) error {
	w, err := m.lookup("hide", label)
	if err != nil {
		return err
	}
	if w.State == Closing {
		w.prior = Hidden
		return nil
	}
	w.State = Hidden
	w.Focused = false
	return nil
}

// Focus gives a window input focus and takes it from every other window.
func (m *Manager) Focus(label string) error {
	w, err := m.lookup("set_focus", label)
	if err != nil {
		return err
	}
	for _, other := range m.windows {
		other.Focused = false
	}
	w.Focused = true
	return nil
}

// SetTitle changes a window's title.
func (m *Manager) SetTitle(label, title string) error {
	w, err := m.lookup("set_title", label)
	if err != nil {
		return err
	}
	w.Title = title
	return nil
}

// ToggleMenu flips the visibility of a window's menu bar.
func (m *Manager) ToggleMenu(label string) error {
	w, err := m.lookup("menu_toggle", label)
	if err != nil {
		return err
	}
	w.MenuVisible = !w.MenuVisible
	return nil
}

// RequestClose moves a window into Closing and reports whether a new
// request was started. A window already waiting for an answer is left as is.
func (m *Manager) RequestClose(label string) (bool, error) {
	w, err := m.lookup("close_requested", label)
	if err != nil {
		return false, err
	}
	if w.State == Closing {
		return false, nil
	}
	w.prior = w.State
	w.State = Closing
	return true, nil
}

// ResolveClose completes a pending close. Confirmed destroys the window;
// otherwise it returns to the state it had before the request.
func (m *Manager) ResolveClose(label string, confirmed bool) error {
	w, err := m.lookup("close", label)
	if err != nil {
		return err
	}
	if w.State != Closing {
		return &LookupError{Label: label, Op: "close", Err: errors.New("no close pending")}
	}
	if confirmed {
		w.State = Destroyed
		w.Focused = false
		return nil
	}
	w.State = w.prior
	return nil
}

// Close destroys a window without confirmation.
func (m *Manager) Close(label string) error {
	w, err := m.lookup("close", label)
	if err != nil {
		return err
	}
	w.State = Destroyed
	w.Focused = false
	return nil
}

// Open returns the number of windows that are not destroyed.
func (m *Manager) Open() int {
	n := 0
	for _, w := range m.windows {
		if w.State != Destroyed {
			n++
		}
	}
	return n
}

// Snapshot returns copies of all windows in registration order.
func (m *Manager) Snapshot() []Info {
	out := make([]Info, 0, len(m.order))
	for _, label := range m.order {
		w := m.windows[label]
		out = append(out, Info{
			Label:       w.Label,
			Title:       w.Title,
			State:       w.State,
			Visible:     w.Visible(),
			MenuVisible: w.MenuVisible,
			Focused:     w.Focused,
		})
	}
	return out
}
