package shell

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// ShutdownRequest is a pending confirmation for closing one window. It is
// answered at most once.
type ShutdownRequest struct {
	ID          uuid.UUID
	Window      string
	RequestedAt time.Time
}

// pendingClose is a ShutdownRequest still waiting for its answer. cancel
// withdraws the question from the prompter.
type pendingClose struct {
	req    ShutdownRequest
	cancel context.CancelFunc
}

// RequestClose handles a surface asking to close the window with the given
// label. The window is kept open until the user confirms; the question is
// asked off the dispatch loop.
func (a *App) RequestClose(label string) error {
	return a.post(func() error { return a.requestClose(label) })
}

func (a *App) requestClose(label string) error {
	started, err := a.windows.RequestClose(label)
	if err != nil {
		return err
	}
	if !started {
		log.Printf("[shell] Close of %q already waiting for an answer", label)
		return nil
	}

	req := ShutdownRequest{ID: uuid.New(), Window: label, RequestedAt: time.Now()}
	ctx, cancel := context.WithCancel(a.ctx)
	a.pending[label] = pendingClose{req: req, cancel: cancel}
	if !a.settings.Shutdown.Confirm {
		return a.answerClose(req, true)
	}

	go a.ask(ctx, req, a.settings.Shutdown.Title, a.settings.Shutdown.Message)
	return nil
}

// withdrawClose drops the pending close of label, if any, and takes the
// question back from the prompter. The window keeps its state.
func (a *App) withdrawClose(label string) {
	p, ok := a.pending[label]
	if !ok {
		return
	}
	delete(a.pending, label)
	p.cancel()
	if err := a.windows.ResolveClose(label, false); err != nil {
		log.Printf("[shell] Failed to withdraw close of %q: %v", label, err)
		return
	}
	log.Printf("[shell] Withdrew close request for %q", label)
}

// ask runs on its own goroutine and posts the answer back to the loop.
func (a *App) ask(ctx context.Context, req ShutdownRequest, title, message string) {
	confirmed := false
	if a.opts.Prompter == nil {
		log.Printf("[shell] No prompter, keeping %q open", req.Window)
	} else {
		ok, err := a.opts.Prompter.Ask(ctx, req.Window, title, message)
		if err != nil {
			log.Printf("[shell] Close prompt for %q failed: %v", req.Window, err)
		}
		confirmed = ok && err == nil
	}

	if err := a.post(func() error { return a.answerClose(req, confirmed) }); err != nil {
		log.Printf("[shell] Dropping close answer for %q: %v", req.Window, err)
	}
}

func (a *App) answerClose(req ShutdownRequest, confirmed bool) error {
	cur, ok := a.pending[req.Window]
	if !ok || cur.req.ID != req.ID {
		log.Printf("[shell] Ignoring stale close answer %s", req.ID)
		return nil
	}
	delete(a.pending, req.Window)
	cur.cancel()

	if err := a.windows.ResolveClose(req.Window, confirmed); err != nil {
		return err
	}

	if confirmed {
		log.Printf("[shell] Closed window %q", req.Window)
		a.detachSurface(req.Window)
		if a.windows.Open() == 0 {
			log.Printf("[shell] All windows closed, still running in the tray")
		}
	} else {
		log.Printf("[shell] Kept window %q open", req.Window)
	}
	a.syncToggle()
	return nil
}
