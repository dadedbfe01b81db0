package shell

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/harbor-io/harbor/internal/window"
)

// ErrShortcutRegistered is returned when an accelerator is already bound.
var ErrShortcutRegistered = errors.New("shortcut already registered")

// ShortcutRetitle retitles the main window.
const ShortcutRetitle = "CmdOrCtrl+1"

const retitledMain = "New title!"

// RegisterShortcut binds an accelerator to a command run on the dispatch
// loop. Accelerators are matched case-insensitively. Call it after Start.
func (a *App) RegisterShortcut(accel string, cmd Command) error {
	return a.loop.Call(context.Background(), func() error { return a.registerShortcut(accel, cmd) })
}

func (a *App) registerShortcut(accel string, cmd Command) error {
	key := strings.ToLower(accel)
	if _, ok := a.shortcuts[key]; ok {
		return fmt.Errorf("%w: %s", ErrShortcutRegistered, accel)
	}
	a.shortcuts[key] = cmd
	return nil
}

// TriggerShortcut runs the command bound to accel. Unbound accelerators
// are ignored.
func (a *App) TriggerShortcut(accel string) error {
	return a.post(func() error {
		cmd, ok := a.shortcuts[strings.ToLower(accel)]
		if !ok {
			log.Printf("[shell] No command for shortcut %s", accel)
			return nil
		}
		return cmd()
	})
}

func (a *App) retitleMain() error {
	return a.windows.SetTitle(window.Main, retitledMain)
}
