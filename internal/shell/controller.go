package shell

import (
	"log"

	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/window"
)

// Menu returns the tray menu model. It is safe to read from any goroutine.
func (a *App) Menu() *tray.Menu {
	return a.menu
}

// SetTrayBackend switches rendering to b and pushes the current labels.
func (a *App) SetTrayBackend(b tray.Backend) error {
	return a.post(func() error {
		a.backend = b
		for _, it := range a.menu.Items() {
			b.SetItemTitle(it.ID, it.Label)
		}
		return nil
	})
}

// HandleTray processes a tray interaction on the dispatch loop.
func (a *App) HandleTray(ev tray.Event) error {
	return a.post(func() error { return a.handleTray(ev) })
}

func (a *App) handleTray(ev tray.Event) error {
	switch ev.Kind {
	case tray.LeftClick:
		if err := a.windows.Show(window.Main); err != nil {
			return err
		}
		if err := a.windows.Focus(window.Main); err != nil {
			return err
		}
		a.syncToggle()
		return nil
	case tray.MenuItemClick:
		return a.handleMenuItem(ev.ID)
	default:
		log.Printf("[tray] Ignoring %s event", ev.Kind)
		return nil
	}
}

func (a *App) handleMenuItem(id string) error {
	switch id {
	case tray.ItemExit:
		a.Exit(0)
		return nil

	case tray.ItemToggle:
		visible, err := a.windows.IsVisible(window.Main)
		if err != nil {
			return err
		}
		if visible {
			if err := a.windows.Hide(window.Main); err != nil {
				return err
			}
		} else {
			if err := a.windows.Show(window.Main); err != nil {
				return err
			}
		}
		a.setToggleLabel(toggleLabel(!visible))
		return nil

	case tray.ItemIcon:
		a.backend.SwapIcon()
		return nil

	default:
		log.Printf("[tray] Ignoring unknown menu item %q", id)
		return nil
	}
}

// toggleLabel is the toggle item's label for the given main visibility.
func toggleLabel(mainVisible bool) string {
	if mainVisible {
		return tray.LabelHide
	}
	return tray.LabelShow
}

// syncToggle realigns the toggle label after main changed visibility
// through something other than the toggle item.
func (a *App) syncToggle() {
	visible, err := a.windows.IsVisible(window.Main)
	if err != nil {
		return
	}
	a.setToggleLabel(toggleLabel(visible))
}

func (a *App) setToggleLabel(label string) {
	if cur, _ := a.menu.Label(tray.ItemToggle); cur == label {
		return
	}
	a.menu.SetLabel(tray.ItemToggle, label)
	a.backend.SetItemTitle(tray.ItemToggle, label)
}
