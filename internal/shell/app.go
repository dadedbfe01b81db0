package shell

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/daemon"
	"github.com/harbor-io/harbor/internal/models"
	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/window"
)

// Supervisor launches the daemon and applies the exit policy on shutdown.
type Supervisor interface {
	Launch(ctx context.Context) (*daemon.Handle, error)
	Shutdown(ctx context.Context) error
	Status() daemon.Status
	SetExitPolicy(policy string)
	SetOnChange(fn func(daemon.Status))
}

// issueSource is implemented by supervisors that scan the daemon's output
// for known problems.
type issueSource interface {
	LastIssue() *daemon.Issue
}

// IdentityFetcher returns the daemon's identity record.
type IdentityFetcher interface {
	ID(ctx context.Context) (*daemon.Identity, error)
}

// Prompter asks the user whether a window may close. It is never called on
// the dispatch loop.
type Prompter interface {
	Ask(ctx context.Context, label, title, message string) (bool, error)
}

// Presenter renders the shell. Render is called on the dispatch loop after
// every command and must not block.
type Presenter interface {
	Render(View)
}

// HealthReporter is told whether the daemon is ready.
type HealthReporter interface {
	SetServing(serving bool)
}

// View is an immutable snapshot of the shell for presenters.
type View struct {
	Windows  []window.Info
	Tray     []tray.Item
	Daemon   daemon.Status
	Ready    bool
	Identity *daemon.Identity
	// Failure is the last startup failure reported to the splash, or nil.
	Failure *DaemonStatusPayload
}

// Window returns the snapshot of the window with the given label.
func (v View) Window(label string) (window.Info, bool) {
	for _, w := range v.Windows {
		if w.Label == label {
			return w, true
		}
	}
	return window.Info{}, false
}

// Options configures an App. Supervisor, Prober, Identity and Bridge are
// required.
type Options struct {
	Settings   *models.Settings
	Supervisor Supervisor
	Prober     daemon.Prober
	Identity   IdentityFetcher
	Bridge     *bridge.Bridge
	Prompter   Prompter
	Presenter  Presenter
	Health     HealthReporter
}

// App is the running shell.
type App struct {
	opts   Options
	loop   *Loop
	bridge *bridge.Bridge

	// Owned by the dispatch loop.
	settings  models.Settings
	windows   *window.Manager
	menu      *tray.Menu
	backend   tray.Backend
	shortcuts map[string]Command
	pending   map[string]pendingClose
	surfaces  map[string]*bridge.Subscription
	ready     bool
	identity  *daemon.Identity
	failure   *DaemonStatusPayload

	ctx         context.Context
	cancel      context.CancelFunc
	startOnce   sync.Once
	startupDone chan struct{}

	exitOnce sync.Once
	exited   chan struct{}
	exitCode int
}

// NewApp creates the shell with "main" hidden and "splash" visible.
func NewApp(opts Options) *App {
	settings := *models.NewSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}

	a := &App{
		opts:        opts,
		bridge:      opts.Bridge,
		settings:    settings,
		windows:     window.NewManager(),
		menu:        tray.NewMenu(toggleLabel(false)),
		backend:     tray.Nop{},
		shortcuts:   make(map[string]Command),
		pending:     make(map[string]pendingClose),
		surfaces:    make(map[string]*bridge.Subscription),
		startupDone: make(chan struct{}),
		exited:      make(chan struct{}),
	}
	a.loop = NewLoop(64, a.handleError)

	_ = a.windows.Add(window.Main, "Harbor", false)
	_ = a.windows.Add(window.Splash, "Starting Harbor", true)

	opts.Supervisor.SetOnChange(a.daemonChanged)
	return a
}

// Start runs the dispatch loop and kicks off the daemon in the background.
// It returns immediately.
func (a *App) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		a.ctx, a.cancel = context.WithCancel(ctx)
		a.setServing(false)

		go a.loop.Run()
		_ = a.post(a.onStart)
		go a.startup(a.ctx)
	})
}

func (a *App) onStart() error {
	if err := a.registerShortcut(ShortcutRetitle, a.retitleMain); err != nil {
		return fmt.Errorf("failed to register shortcut: %w", err)
	}
	return nil
}

// startup launches the daemon, waits for it to answer and then swaps the
// splash window for the main window. Failures stay here: the splash stays
// up and main is never shown.
func (a *App) startup(ctx context.Context) {
	defer close(a.startupDone)

	if _, err := a.opts.Supervisor.Launch(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[shell] Failed to launch daemon: %v", err)
		a.reportFailure(a.opts.Supervisor.Status().State.String(), err.Error())
		return
	}

	cfg := daemon.ReadinessConfig{
		MaxAttempts:  a.settings.Readiness.MaxAttempts,
		Interval:     a.settings.Readiness.Interval,
		ProbeTimeout: a.settings.Daemon.ProbeTimeout,
	}
	res, err := daemon.Poll(ctx, a.opts.Prober, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[shell] Daemon never became ready: %v", err)
		a.reportFailure("timeout", err.Error())
		return
	}
	log.Printf("[shell] Daemon ready after %d attempts (%s)", res.Attempts, res.Elapsed)

	id, err := a.opts.Identity.ID(ctx)
	if err != nil {
		log.Printf("[shell] Warning: failed to fetch daemon identity: %v", err)
		id = nil
	} else {
		log.Printf("[shell] Daemon identity: %s", id.ID)
		if ok, v := id.Supported(); !ok {
			log.Printf("[shell] Warning: daemon %s is older than %s", v, daemon.MinVersion)
		}
	}

	_ = a.post(func() error { return a.daemonReady(id) })
}

func (a *App) daemonReady(id *daemon.Identity) error {
	a.ready = true
	a.identity = id
	a.setServing(true)
	a.withdrawClose(window.Splash)

	if id != nil {
		if err := a.bridge.Emit(window.Main, EventIdentity, id); err != nil {
			log.Printf("[shell] Failed to emit identity: %v", err)
		}
	}

	var errs []error
	if err := a.windows.Close(window.Splash); err != nil {
		errs = append(errs, err)
	}
	if err := a.windows.Show(window.Main); err != nil {
		errs = append(errs, err)
	}
	a.syncToggle()
	return errors.Join(errs...)
}

func (a *App) reportFailure(state, reason string) {
	_ = a.post(func() error { return a.emitFailure(state, reason) })
}

// emitFailure tells the splash why startup stopped. Once the daemon is
// known to have failed, later reports (a readiness timeout against the
// dead process) are dropped so the splash keeps the real cause.
func (a *App) emitFailure(state, reason string) error {
	if a.failure != nil && a.failure.State == daemon.StateFailed.String() {
		log.Printf("[shell] Not reporting %s after daemon failure: %s", state, reason)
		return nil
	}
	payload := DaemonStatusPayload{State: state, Reason: reason}
	if src, ok := a.opts.Supervisor.(issueSource); ok {
		if issue := src.LastIssue(); issue != nil {
			payload.Issue = string(issue.Type)
		}
	}
	a.failure = &payload
	return a.bridge.Emit(window.Splash, EventDaemonStatus, payload)
}

// daemonChanged runs on whichever goroutine changed the supervisor state.
func (a *App) daemonChanged(st daemon.Status) {
	if st.State != daemon.StateFailed {
		return
	}
	_ = a.post(func() error {
		if !a.ready {
			log.Printf("[shell] Daemon failed before it was ready: %s", st.Reason)
			return a.emitFailure(st.State.String(), st.Reason)
		}
		log.Printf("[shell] Daemon stopped answering: %s", st.Reason)
		a.ready = false
		a.setServing(false)
		return nil
	})
}

func (a *App) setServing(serving bool) {
	if a.opts.Health != nil {
		a.opts.Health.SetServing(serving)
	}
}

// post queues cmd and re-renders after it runs.
func (a *App) post(cmd Command) error {
	return a.loop.Post(func() error {
		err := cmd()
		a.render()
		return err
	})
}

func (a *App) render() {
	if a.opts.Presenter != nil {
		a.opts.Presenter.Render(a.view())
	}
}

func (a *App) view() View {
	return View{
		Windows:  a.windows.Snapshot(),
		Tray:     a.menu.Items(),
		Daemon:   a.opts.Supervisor.Status(),
		Ready:    a.ready,
		Identity: a.identity,
		Failure:  a.failure,
	}
}

// View returns a snapshot of the shell.
func (a *App) View(ctx context.Context) (View, error) {
	var v View
	err := a.loop.Call(ctx, func() error {
		v = a.view()
		return nil
	})
	return v, err
}

// handleError is the dispatch loop's top-level error handler. Nothing a
// command returns stops the loop.
func (a *App) handleError(err error) {
	var lookupErr *window.LookupError
	if errors.As(err, &lookupErr) {
		log.Printf("[shell] Window operation failed: %v", err)
		return
	}
	log.Printf("[shell] Error: %v", err)
}

// ToggleMenu flips the menu bar of the window with the given label.
func (a *App) ToggleMenu(label string) error {
	return a.post(func() error { return a.windows.ToggleMenu(label) })
}

// ApplySettings takes reloaded settings. The exit policy and the shutdown
// prompt change for the rest of the run; daemon and readiness settings only
// apply at the next start.
func (a *App) ApplySettings(s *models.Settings) error {
	return a.post(func() error {
		a.settings.Shutdown = s.Shutdown
		a.settings.Daemon.OnExit = s.Daemon.OnExit
		a.opts.Supervisor.SetExitPolicy(s.Daemon.OnExit)
		log.Printf("[shell] Settings reloaded (on_exit=%s, confirm=%v)", s.Daemon.OnExit, s.Shutdown.Confirm)
		return a.bridge.Emit(window.Main, EventSettingsChanged, SettingsPayload{
			OnExit:  s.Daemon.OnExit,
			Confirm: s.Shutdown.Confirm,
		})
	})
}

// Exit ends the run with the given process exit code. It does not wait for
// anything and may be called from any goroutine.
func (a *App) Exit(code int) {
	a.exitOnce.Do(func() {
		log.Printf("[shell] Exit requested (code %d)", code)
		a.exitCode = code
		close(a.exited)
	})
}

// Done is closed once Exit has been called.
func (a *App) Done() <-chan struct{} {
	return a.exited
}

// ExitCode returns the code passed to Exit. Valid once Done is closed.
func (a *App) ExitCode() int {
	<-a.exited
	return a.exitCode
}

// Close stops background work, applies the daemon exit policy and stops
// the dispatch loop.
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
		select {
		case <-a.startupDone:
		case <-ctx.Done():
		}
	}

	err := a.opts.Supervisor.Shutdown(ctx)
	if err != nil {
		err = fmt.Errorf("failed to stop daemon: %w", err)
	}
	a.bridge.Close()
	a.loop.Stop()
	return err
}
