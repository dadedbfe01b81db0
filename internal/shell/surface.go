package shell

import (
	"log"

	"github.com/harbor-io/harbor/internal/bridge"
)

// AttachSurface registers the backend's handlers for a surface that has
// just loaded. Attaching the same surface again replaces its handlers.
func (a *App) AttachSurface(label string) error {
	return a.post(func() error {
		if _, err := a.windows.Get(label); err != nil {
			return err
		}
		a.detachSurface(label)
		a.surfaces[label] = a.bridge.On(label, EventIPFSID, func(ev bridge.Event) {
			if err := a.post(func() error { return a.reply(ev.Window) }); err != nil {
				log.Printf("[shell] Dropping %s from %q: %v", ev.Name, ev.Window, err)
			}
		})
		log.Printf("[shell] Surface %q attached", label)
		return nil
	})
}

func (a *App) reply(label string) error {
	return a.bridge.Emit(label, EventRustEvent, ReplyPayload{Data: replyData})
}

func (a *App) detachSurface(label string) {
	if sub, ok := a.surfaces[label]; ok {
		sub.Cancel()
		delete(a.surfaces, label)
	}
}
