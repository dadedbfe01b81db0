package shell

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/daemon"
	"github.com/harbor-io/harbor/internal/models"
)

type fakeSupervisor struct {
	mu        sync.Mutex
	launchErr error
	launches  int
	shutdowns int
	policy    string
	status    daemon.Status
	onChange  func(daemon.Status)
}

func (f *fakeSupervisor) Launch(ctx context.Context) (*daemon.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches++
	if f.launchErr != nil {
		f.status = daemon.Status{State: daemon.StateFailed, Reason: f.launchErr.Error()}
		return nil, f.launchErr
	}
	f.status = daemon.Status{State: daemon.StateRunning, PID: 4242}
	return &daemon.Handle{PID: 4242, Path: "ipfs", Args: []string{"daemon"}, StartedAt: time.Now()}, nil
}

func (f *fakeSupervisor) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

func (f *fakeSupervisor) Status() daemon.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeSupervisor) SetExitPolicy(policy string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policy = policy
}

func (f *fakeSupervisor) SetOnChange(fn func(daemon.Status)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

func (f *fakeSupervisor) exit(reason string) {
	f.mu.Lock()
	f.status = daemon.Status{State: daemon.StateFailed, Reason: reason}
	fn := f.onChange
	st := f.status
	f.mu.Unlock()
	fn(st)
}

func (f *fakeSupervisor) exitPolicy() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policy
}

// readyProber answers from attempt readyAt on; zero never answers.
type readyProber struct {
	readyAt int
	calls   atomic.Int32
}

func (p *readyProber) Probe(ctx context.Context) error {
	n := int(p.calls.Add(1))
	if p.readyAt > 0 && n >= p.readyAt {
		return nil
	}
	return errors.New("connection refused")
}

type fakeIdentity struct {
	err   error
	calls atomic.Int32
}

func (f *fakeIdentity) ID(ctx context.Context) (*daemon.Identity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &daemon.Identity{ID: "12D3KooWHarbor", AgentVersion: "kubo/0.29.0"}, nil
}

type prompt struct {
	label, title, message string
}

// fakePrompter answers every prompt with the next value from answers.
type fakePrompter struct {
	answers   chan bool
	mu        sync.Mutex
	asked     []prompt
	withdrawn atomic.Int32
}

func newFakePrompter() *fakePrompter {
	return &fakePrompter{answers: make(chan bool, 4)}
}

func (f *fakePrompter) Ask(ctx context.Context, label, title, message string) (bool, error) {
	f.mu.Lock()
	f.asked = append(f.asked, prompt{label, title, message})
	f.mu.Unlock()
	select {
	case ok := <-f.answers:
		return ok, nil
	case <-ctx.Done():
		f.withdrawn.Add(1)
		return false, ctx.Err()
	}
}

func (f *fakePrompter) prompts() []prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]prompt(nil), f.asked...)
}

type fakeBackend struct {
	mu     sync.Mutex
	titles map[string]string
	swaps  int
}

func (f *fakeBackend) SetItemTitle(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.titles == nil {
		f.titles = make(map[string]string)
	}
	f.titles[id] = title
}

func (f *fakeBackend) SwapIcon() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swaps++
}

func (f *fakeBackend) title(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titles[id]
}

type fakeHealth struct {
	serving atomic.Bool
}

func (f *fakeHealth) SetServing(serving bool) { f.serving.Store(serving) }

type testShell struct {
	app      *App
	bridge   *bridge.Bridge
	sup      *fakeSupervisor
	prober   *readyProber
	identity *fakeIdentity
	prompter *fakePrompter
	health   *fakeHealth
}

type testConfig struct {
	readyAt     int
	maxAttempts int
	interval    time.Duration
	launchErr   error
	confirm     bool
	supervisor  Supervisor
	prober      daemon.Prober
}

// newTestShell builds an App with fakes. By default the daemon answers on
// the first probe.
func newTestShell(t *testing.T, cfg testConfig) *testShell {
	t.Helper()

	settings := models.NewSettings()
	settings.Readiness.MaxAttempts = 300
	settings.Readiness.Interval = time.Millisecond
	settings.Shutdown.Confirm = cfg.confirm
	if cfg.maxAttempts > 0 {
		settings.Readiness.MaxAttempts = cfg.maxAttempts
	}
	if cfg.interval > 0 {
		settings.Readiness.Interval = cfg.interval
	}

	ts := &testShell{
		bridge:   bridge.New(),
		sup:      &fakeSupervisor{launchErr: cfg.launchErr},
		prober:   &readyProber{readyAt: cfg.readyAt},
		identity: &fakeIdentity{},
		prompter: newFakePrompter(),
		health:   &fakeHealth{},
	}
	var sup Supervisor = ts.sup
	if cfg.supervisor != nil {
		sup = cfg.supervisor
	}

	var prober daemon.Prober = ts.prober
	if cfg.prober != nil {
		prober = cfg.prober
	}

	ts.app = NewApp(Options{
		Settings:   settings,
		Supervisor: sup,
		Prober:     prober,
		Identity:   ts.identity,
		Bridge:     ts.bridge,
		Prompter:   ts.prompter,
		Health:     ts.health,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ts.app.Close(ctx)
	})
	return ts
}

func (ts *testShell) view(t *testing.T) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := ts.app.View(ctx)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	return v
}

// waitFor polls the shell until cond holds or the deadline passes.
func (ts *testShell) waitFor(t *testing.T, what string, cond func(View) bool) View {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		v := ts.view(t)
		if cond(v) {
			return v
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; view = %+v", what, v)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// collect subscribes to (window, name) and returns a channel of events.
func collect(b *bridge.Bridge, window, name string) <-chan bridge.Event {
	ch := make(chan bridge.Event, 16)
	b.On(window, name, func(ev bridge.Event) { ch <- ev })
	return ch
}
