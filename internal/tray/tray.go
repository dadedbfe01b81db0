package tray

import (
	"log"
	"sync"

	"github.com/getlantern/systray"
)

// Systray is the Backend backed by the platform status area.
type Systray struct {
	mu        sync.Mutex
	items     map[string]*systray.MenuItem
	alternate bool
}

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStart is called once the tray is ready with the backend to render into;
// every interaction is passed to handle. onExit is called when the tray exits.
func Run(menu *Menu, onStart func(Backend), handle func(Event), onExit func()) {
	s := &Systray{items: make(map[string]*systray.MenuItem)}
	systray.Run(func() { s.onReady(menu, onStart, handle) }, onExit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

func (s *Systray) onReady(menu *Menu, onStart func(Backend), handle func(Event)) {
	systray.SetTemplateIcon(iconPrimary, iconPrimary)
	systray.SetTooltip("Harbor")

	// systray has no click callback on the icon itself, so the first entry
	// stands in for a left click.
	open := systray.AddMenuItem("Open Harbor", "Show the main window")
	systray.AddSeparator()

	s.mu.Lock()
	for _, it := range menu.Items() {
		if it.ID == ItemExit {
			systray.AddSeparator()
		}
		s.items[it.ID] = systray.AddMenuItem(it.Label, "")
	}
	s.mu.Unlock()

	if onStart != nil {
		onStart(s)
	}

	go s.handleClicks(open, handle)
}

func (s *Systray) handleClicks(open *systray.MenuItem, handle func(Event)) {
	s.mu.Lock()
	toggle := s.items[ItemToggle]
	icon := s.items[ItemIcon]
	quit := s.items[ItemExit]
	s.mu.Unlock()

	for {
		select {
		case <-open.ClickedCh:
			handle(Event{Kind: LeftClick})
		case <-toggle.ClickedCh:
			handle(Event{Kind: MenuItemClick, ID: ItemToggle})
		case <-icon.ClickedCh:
			handle(Event{Kind: MenuItemClick, ID: ItemIcon})
		case <-quit.ClickedCh:
			handle(Event{Kind: MenuItemClick, ID: ItemExit})
		}
	}
}

// SetItemTitle changes the title of a menu item.
func (s *Systray) SetItemTitle(id, title string) {
	s.mu.Lock()
	item, ok := s.items[id]
	s.mu.Unlock()
	if !ok {
		log.Printf("[tray] Unknown menu item %q", id)
		return
	}
	item.SetTitle(title)
}

// SwapIcon alternates between the two tray icons.
func (s *Systray) SwapIcon() {
	s.mu.Lock()
	s.alternate = !s.alternate
	icon := iconPrimary
	if s.alternate {
		icon = iconAlternate
	}
	s.mu.Unlock()
	systray.SetIcon(icon)
}

// Nop is a Backend that renders nothing, used when no tray is shown.
type Nop struct{}

// SetItemTitle does nothing.
func (Nop) SetItemTitle(string, string) {}

// SwapIcon does nothing.
func (Nop) SwapIcon() {}
