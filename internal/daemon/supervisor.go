// Package daemon launches and supervises the storage daemon sidecar and
// talks to its control API.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/harbor-io/harbor/internal/models"
)

// State is the lifecycle state of the daemon process.
type State int

// Daemon process states.
const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the supervised process.
type Status struct {
	State  State
	Reason string // set when State is StateFailed
	PID    int
}

// Options configures a Supervisor.
type Options struct {
	Binary      string
	Args        []string
	OnExit      string // models.OnExitDetach or models.OnExitTerminate
	StopTimeout time.Duration

	// OpenLog returns the writer that receives the daemon's stdout and
	// stderr. Nil discards output.
	OpenLog func(path string, args []string) (io.WriteCloser, error)
}

// Handle identifies a launched daemon process.
type Handle struct {
	PID       int
	Path      string
	Args      []string
	StartedAt time.Time
	done      <-chan struct{}
}

// Done is closed when the daemon process exits.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Supervisor owns the daemon process handle. It is the only place the
// process state changes.
type Supervisor struct {
	mu       sync.Mutex
	opts     Options
	state    State
	reason   string
	cmd      *exec.Cmd
	logOut   io.WriteCloser
	issues   *issueScanner
	done     chan struct{}
	stopping bool
	onChange func(Status)

	// Overridable for tests.
	lookPath   func(string) (string, error)
	executable func() (string, error)
}

// NewSupervisor creates a supervisor for the given options.
func NewSupervisor(opts Options) *Supervisor {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}
	return &Supervisor{
		opts:       opts,
		lookPath:   exec.LookPath,
		executable: os.Executable,
	}
}

// SetOnChange sets a callback invoked after every state transition.
// It is called without the supervisor lock held.
func (s *Supervisor) SetOnChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetExitPolicy changes what Shutdown does with a running daemon.
func (s *Supervisor) SetExitPolicy(policy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnExit = policy
}

// Status returns the current process status.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Supervisor) statusLocked() Status {
	st := Status{State: s.state, Reason: s.reason}
	if s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
	}
	return st
}

// LastIssue returns the last known problem seen in the daemon's output, or
// nil.
func (s *Supervisor) LastIssue() *Issue {
	s.mu.Lock()
	issues := s.issues
	s.mu.Unlock()
	if issues == nil {
		return nil
	}
	return issues.Issue()
}

// Launch resolves the daemon binary and spawns it. Spawn is never retried:
// any failure leaves the supervisor in StateFailed for the rest of the run.
func (s *Supervisor) Launch(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return nil, ErrAlreadyLaunched
	}
	s.state = StateStarting
	s.stopping = false
	s.mu.Unlock()
	s.notify()

	log.Printf("[supervisor] Starting %s", s.opts.Binary)

	path, err := s.resolveBinary()
	if err != nil {
		s.fail(err.Error())
		return nil, err
	}

	cmd := exec.Command(path, s.opts.Args...)
	cmd.Stdin = nil
	cmd.SysProcAttr = sysProcAttr()

	var out io.WriteCloser
	if s.opts.OpenLog != nil {
		out, err = s.opts.OpenLog(path, s.opts.Args)
		if err != nil {
			log.Printf("[supervisor] Warning: daemon output will be discarded: %v", err)
			out = nil
		}
	}
	// Output is scanned for known problems whether or not it is kept.
	issues := newIssueScanner(nil)
	if out != nil {
		issues.out = out
	}
	cmd.Stdout = issues
	cmd.Stderr = issues

	startedAt := time.Now()
	if err := cmd.Start(); err != nil {
		if out != nil {
			_ = out.Close()
		}
		spawnErr := &SpawnError{Path: path, Err: err}
		s.fail(spawnErr.Error())
		return nil, spawnErr
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cmd = cmd
	s.logOut = out
	s.issues = issues
	s.done = done
	s.state = StateRunning
	s.mu.Unlock()

	log.Printf("[supervisor] Spawned %s %s (PID %d)", path, strings.Join(s.opts.Args, " "), cmd.Process.Pid)
	s.notify()

	go s.reap(cmd, issues, done)

	return &Handle{
		PID:       cmd.Process.Pid,
		Path:      path,
		Args:      append([]string(nil), s.opts.Args...),
		StartedAt: startedAt,
		done:      done,
	}, nil
}

// reap waits for the daemon so it never lingers as a zombie, and records
// an unexpected exit.
func (s *Supervisor) reap(cmd *exec.Cmd, issues *issueScanner, done chan struct{}) {
	err := cmd.Wait()
	issue := issues.Issue()

	s.mu.Lock()
	if !s.stopping {
		s.state = StateFailed
		if err != nil {
			s.reason = fmt.Sprintf("exited: %v", err)
		} else {
			s.reason = "exited: status 0"
		}
		if issue != nil {
			s.reason += " (" + issue.Hint() + ")"
		}
	}
	if s.logOut != nil {
		_ = s.logOut.Close()
		s.logOut = nil
	}
	stopping := s.stopping
	s.mu.Unlock()

	close(done)
	if !stopping {
		log.Printf("[supervisor] Daemon (PID %d) exited: %v", cmd.Process.Pid, err)
		s.notify()
	}
}

func (s *Supervisor) fail(reason string) {
	s.mu.Lock()
	s.state = StateFailed
	s.reason = reason
	s.mu.Unlock()
	s.notify()
}

func (s *Supervisor) notify() {
	s.mu.Lock()
	fn := s.onChange
	st := s.statusLocked()
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// Shutdown applies the exit policy. With detach the daemon keeps running
// after the shell exits; with terminate it gets SIGTERM, then a kill once
// StopTimeout (or ctx) runs out.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	policy := s.opts.OnExit
	timeout := s.opts.StopTimeout
	if cmd == nil || s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	if policy != models.OnExitTerminate {
		s.mu.Unlock()
		log.Printf("[supervisor] Leaving daemon running (PID %d)", cmd.Process.Pid)
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	log.Printf("[supervisor] Stopping daemon (PID %d)", cmd.Process.Pid)
	if err := gracefulTerminate(cmd.Process); err != nil {
		log.Printf("[supervisor] Failed to signal daemon: %v", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		log.Printf("[supervisor] Daemon did not stop within %s, killing", timeout)
		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}

	s.mu.Lock()
	s.state = StateNotStarted
	s.reason = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// resolveBinary locates the daemon binary. A value containing a path
// separator is used as-is; a bare name is looked up next to the running
// executable (plain and target-suffixed, the way sidecars are bundled),
// then on PATH.
func (s *Supervisor) resolveBinary() (string, error) {
	name := s.opts.Binary
	if name == "" {
		return "", fmt.Errorf("%w: empty binary name", ErrBinaryNotFound)
	}

	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if isExecutableFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}

	if exe, err := s.executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, candidate := range sidecarNames(name) {
			p := filepath.Join(dir, candidate)
			if isExecutableFile(p) {
				return p, nil
			}
		}
	}

	if p, err := s.lookPath(name); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
}

// sidecarNames returns the file names a bundled sidecar may have.
func sidecarNames(name string) []string {
	suffix := ""
	if runtime.GOOS == "windows" {
		suffix = ".exe"
	}
	return []string{
		name + suffix,
		fmt.Sprintf("%s-%s-%s%s", name, runtime.GOOS, runtime.GOARCH, suffix),
	}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode()&0o111 != 0
}
