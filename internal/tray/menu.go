// Package tray implements the system tray icon and menu for the shell.
package tray

import "sync"

// Menu item IDs.
const (
	ItemToggle = "toggle"
	ItemIcon   = "icon_1"
	ItemExit   = "exit_app"
)

// Toggle item labels.
const (
	LabelShow = "Show"
	LabelHide = "Hide"
)

// Item is one entry of the tray menu.
type Item struct {
	ID    string
	Label string
}

// EventKind distinguishes tray interactions.
type EventKind int

// Tray interactions.
const (
	LeftClick EventKind = iota
	MenuItemClick
)

func (k EventKind) String() string {
	switch k {
	case LeftClick:
		return "left-click"
	case MenuItemClick:
		return "menu-item-click"
	default:
		return "unknown"
	}
}

// Event is a tray interaction. ID is set for menu item clicks.
type Event struct {
	Kind EventKind
	ID   string
}

// Backend renders the tray. Implementations must be safe to call from any
// goroutine.
type Backend interface {
	SetItemTitle(id, title string)
	SwapIcon()
}

// Menu holds the tray items and their current labels.
type Menu struct {
	mu    sync.RWMutex
	items []Item
}

// NewMenu builds the shell's tray menu with the given toggle label.
func NewMenu(toggleLabel string) *Menu {
	return &Menu{items: []Item{
		{ID: ItemToggle, Label: toggleLabel},
		{ID: ItemIcon, Label: "Change icon"},
		{ID: ItemExit, Label: "Quit"},
	}}
}

// Items returns a copy of the menu items.
func (m *Menu) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Item(nil), m.items...)
}

// Label returns the label of the item with the given ID.
func (m *Menu) Label(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		if it.ID == id {
			return it.Label, true
		}
	}
	return "", false
}

// SetLabel changes an item's label and reports whether the item exists.
func (m *Menu) SetLabel(id, label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Label = label
			return true
		}
	}
	return false
}
