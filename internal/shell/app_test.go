package shell

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/harbor-io/harbor/internal/daemon"
	"github.com/harbor-io/harbor/internal/models"
	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/window"
)

func mainReady(v View) bool {
	w, _ := v.Window(window.Main)
	return v.Ready && w.Visible
}

func TestStartupReadyOnFifthAttempt(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 5})
	identities := collect(ts.bridge, window.Main, EventIdentity)

	ts.app.Start(context.Background())
	v := ts.waitFor(t, "main window", mainReady)

	splash, _ := v.Window(window.Splash)
	if splash.State != window.Destroyed {
		t.Errorf("splash state = %v, want destroyed", splash.State)
	}
	if got := ts.prober.calls.Load(); got != 5 {
		t.Errorf("probes = %d, want 5", got)
	}
	if got := ts.identity.calls.Load(); got != 1 {
		t.Errorf("identity fetches = %d, want 1", got)
	}
	if v.Identity == nil || v.Identity.ID != "12D3KooWHarbor" {
		t.Errorf("Identity = %+v", v.Identity)
	}
	if !ts.health.serving.Load() {
		t.Error("health not serving after ready")
	}
	if got, _ := labelOf(v, tray.ItemToggle); got != tray.LabelHide {
		t.Errorf("toggle label = %q, want %q", got, tray.LabelHide)
	}

	select {
	case ev := <-identities:
		if id := gjson.GetBytes(ev.Payload, "ID").String(); id != "12D3KooWHarbor" {
			t.Errorf("identity event ID = %q", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no identity event")
	}
}

func TestStartupIdentityFailureStillShowsMain(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 1})
	ts.identity.err = errors.New("api unavailable")

	ts.app.Start(context.Background())
	v := ts.waitFor(t, "main window", mainReady)
	if v.Identity != nil {
		t.Errorf("Identity = %+v, want nil", v.Identity)
	}
}

func TestStartupBinaryMissing(t *testing.T) {
	sup := daemon.NewSupervisor(daemon.Options{Binary: "/nonexistent/harbor-test/ipfs"})
	ts := newTestShell(t, testConfig{readyAt: 1, supervisor: sup})
	statuses := collect(ts.bridge, window.Splash, EventDaemonStatus)

	ts.app.Start(context.Background())

	select {
	case ev := <-statuses:
		if state := gjson.GetBytes(ev.Payload, "state").String(); state != "failed" {
			t.Errorf("state = %q, want failed", state)
		}
		if reason := gjson.GetBytes(ev.Payload, "reason").String(); !strings.Contains(reason, "not found") {
			t.Errorf("reason = %q", reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no daemon-status event")
	}

	v := ts.view(t)
	if w, _ := v.Window(window.Splash); !w.Visible {
		t.Error("splash not visible after launch failure")
	}
	if w, _ := v.Window(window.Main); w.Visible {
		t.Error("main visible after launch failure")
	}
	if ts.prober.calls.Load() != 0 || ts.identity.calls.Load() != 0 {
		t.Errorf("probes = %d, identity = %d; want none", ts.prober.calls.Load(), ts.identity.calls.Load())
	}
	if v.Daemon.State != daemon.StateFailed {
		t.Errorf("daemon state = %v", v.Daemon.State)
	}
}

func TestStartupDaemonExitsBeforeReady(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "ipfs")
	script := "#!/bin/sh\necho \"Error: lock /tmp/ipfs/repo.lock: someone else has the lock\" >&2\nexit 1\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	sup := daemon.NewSupervisor(daemon.Options{Binary: path, Args: []string{"daemon"}})
	ts := newTestShell(t, testConfig{maxAttempts: 50, interval: 20 * time.Millisecond, supervisor: sup})
	statuses := collect(ts.bridge, window.Splash, EventDaemonStatus)

	ts.app.Start(context.Background())

	select {
	case ev := <-statuses:
		if state := gjson.GetBytes(ev.Payload, "state").String(); state != "failed" {
			t.Errorf("state = %q, want failed", state)
		}
		if reason := gjson.GetBytes(ev.Payload, "reason").String(); !strings.Contains(reason, "locked by another daemon") {
			t.Errorf("reason = %q, want the lock hint", reason)
		}
		if issue := gjson.GetBytes(ev.Payload, "issue").String(); issue != string(daemon.IssueRepoLocked) {
			t.Errorf("issue = %q, want %q", issue, daemon.IssueRepoLocked)
		}
	case <-time.After(800 * time.Millisecond):
		t.Fatal("no daemon-status event before the readiness budget ran out")
	}

	// The readiness timeout that follows must not replace the cause.
	select {
	case <-ts.app.startupDone:
	case <-time.After(5 * time.Second):
		t.Fatal("startup did not finish")
	}
	v := ts.view(t)
	select {
	case ev := <-statuses:
		t.Errorf("extra daemon-status event: %s", ev.Payload)
	default:
	}
	if v.Failure == nil || v.Failure.State != "failed" {
		t.Errorf("Failure = %+v, want failed", v.Failure)
	}
	if w, _ := v.Window(window.Main); w.Visible {
		t.Error("main visible after daemon exit")
	}
}

func TestStartupReadinessTimeout(t *testing.T) {
	ts := newTestShell(t, testConfig{maxAttempts: 5})
	statuses := collect(ts.bridge, window.Splash, EventDaemonStatus)

	ts.app.Start(context.Background())

	select {
	case ev := <-statuses:
		if state := gjson.GetBytes(ev.Payload, "state").String(); state != "timeout" {
			t.Errorf("state = %q, want timeout", state)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no daemon-status event")
	}

	if got := ts.prober.calls.Load(); got != 6 {
		t.Errorf("probes = %d, want 6", got)
	}
	if got := ts.identity.calls.Load(); got != 0 {
		t.Errorf("identity fetches = %d, want 0", got)
	}
	v := ts.view(t)
	if w, _ := v.Window(window.Main); w.Visible {
		t.Error("main visible after timeout")
	}
	if ts.health.serving.Load() {
		t.Error("health serving after timeout")
	}
	if v.Failure == nil || v.Failure.State != "timeout" {
		t.Errorf("Failure = %+v, want timeout", v.Failure)
	}
}

func TestDaemonExitAfterReady(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 1})
	ts.app.Start(context.Background())
	ts.waitFor(t, "main window", mainReady)

	ts.sup.exit("exited: signal: killed")
	ts.waitFor(t, "not ready", func(v View) bool { return !v.Ready })
	if ts.health.serving.Load() {
		t.Error("health still serving")
	}
}

func TestCloseRunsExitPolicy(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 1})
	ts.app.Start(context.Background())
	ts.waitFor(t, "main window", mainReady)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.app.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if ts.sup.shutdowns != 1 {
		t.Errorf("shutdowns = %d, want 1", ts.sup.shutdowns)
	}
	if err := ts.app.HandleTray(tray.Event{Kind: tray.LeftClick}); !errors.Is(err, ErrLoopStopped) {
		t.Errorf("HandleTray() after Close error = %v", err)
	}
}

func TestApplySettings(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 1, confirm: true})
	changes := collect(ts.bridge, window.Main, EventSettingsChanged)
	ts.app.Start(context.Background())
	ts.waitFor(t, "main window", mainReady)

	s := models.NewSettings()
	s.Daemon.OnExit = models.OnExitTerminate
	s.Shutdown.Confirm = false
	if err := ts.app.ApplySettings(s); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-changes:
		if got := gjson.GetBytes(ev.Payload, "on_exit").String(); got != models.OnExitTerminate {
			t.Errorf("on_exit = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no settings-changed event")
	}
	if got := ts.sup.exitPolicy(); got != models.OnExitTerminate {
		t.Errorf("exit policy = %q", got)
	}

	// Closing no longer asks.
	_ = ts.app.RequestClose(window.Main)
	ts.waitFor(t, "main destroyed", func(v View) bool {
		w, _ := v.Window(window.Main)
		return w.State == window.Destroyed
	})
	if n := len(ts.prompter.prompts()); n != 0 {
		t.Errorf("prompts = %d, want 0", n)
	}
}

func TestReadyWithdrawsSplashClose(t *testing.T) {
	gate := make(chan struct{})
	prober := daemon.ProbeFunc(func(ctx context.Context) error {
		select {
		case <-gate:
			return nil
		default:
			return errors.New("connection refused")
		}
	})
	ts := newTestShell(t, testConfig{confirm: true, prober: prober})
	ts.app.Start(context.Background())

	if err := ts.app.RequestClose(window.Splash); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(ts.prompter.prompts()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("splash close never asked")
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(gate)
	v := ts.waitFor(t, "main window", mainReady)
	if w, _ := v.Window(window.Splash); w.State != window.Destroyed {
		t.Errorf("splash state = %v, want destroyed", w.State)
	}

	deadline = time.Now().Add(2 * time.Second)
	for ts.prompter.withdrawn.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("splash prompt not withdrawn")
		}
		time.Sleep(5 * time.Millisecond)
	}

	var pending int
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.app.loop.Call(ctx, func() error {
		pending = len(ts.app.pending)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Errorf("pending closes = %d, want 0", pending)
	}
}

func TestLookupErrorsKeepLoopRunning(t *testing.T) {
	ts := newTestShell(t, testConfig{readyAt: 1})
	ts.app.Start(context.Background())

	_ = ts.app.AttachSurface("settings")
	_ = ts.app.ToggleMenu("settings")
	_ = ts.app.RequestClose("settings")

	if err := ts.app.ToggleMenu(window.Splash); err != nil {
		t.Fatal(err)
	}
	v := ts.view(t)
	if w, _ := v.Window(window.Splash); w.MenuVisible {
		t.Error("splash menu still visible")
	}
}

func labelOf(v View, id string) (string, bool) {
	for _, it := range v.Tray {
		if it.ID == id {
			return it.Label, true
		}
	}
	return "", false
}
