package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/config"
	"github.com/harbor-io/harbor/internal/daemon"
	"github.com/harbor-io/harbor/internal/models"
	"github.com/harbor-io/harbor/internal/server"
	"github.com/harbor-io/harbor/internal/shell"
	"github.com/harbor-io/harbor/internal/tray"
	"github.com/harbor-io/harbor/internal/tui"
	"github.com/harbor-io/harbor/internal/watcher"
)

var (
	runNoTray   bool
	runHeadless bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start harbor and its daemon",
	Long: `Start the shell: launch the IPFS daemon, show the splash screen until
the daemon answers, then switch to the main window. The tray menu stays
available until "Quit" is chosen or the process is signalled.`,
	RunE: runShell,
}

func init() {
	runCmd.Flags().BoolVar(&runNoTray, "no-tray", false, "Run without a system tray icon")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the terminal UI (close prompts go to stdin)")
}

func runShell(cmd *cobra.Command, args []string) error {
	log.SetPrefix("[harbor] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}

	running, info, err := config.IsShellRunning()
	if err != nil {
		return fmt.Errorf("failed to check harbor status: %w", err)
	}
	if running {
		return fmt.Errorf("harbor already running on port %d (PID %d)", info.Port, info.PID)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// The terminal UI owns the terminal, so the log goes to a file.
	var logFile *os.File
	if !runHeadless {
		logFile, err = openShellLog()
		if err != nil {
			return err
		}
		log.SetOutput(logFile)
	}

	r, err := newRunner(settings, runHeadless)
	if err != nil {
		if logFile != nil {
			log.SetOutput(os.Stderr)
			logFile.Close()
		}
		return err
	}

	code := r.run(!runNoTray)

	if logFile != nil {
		log.SetOutput(os.Stderr)
		logFile.Close()
	}
	fmt.Println("Harbor stopped")
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func openShellLog() (*os.File, error) {
	if err := config.EnsureGlobalLogsDir(); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path, err := config.ShellLogFile()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// runner owns everything a harbor run starts and tears down.
type runner struct {
	settings *models.Settings
	bridge   *bridge.Bridge
	app      *shell.App
	status   *server.Status
	gateway  *server.Gateway
	watcher  *watcher.Watcher
	ui       *tui.UI
	uiDone   chan struct{}
}

func newRunner(settings *models.Settings, headless bool) (*runner, error) {
	r := &runner{
		settings: settings,
		bridge:   bridge.New(),
		uiDone:   make(chan struct{}),
	}

	status, err := server.NewStatus(settings.Status.Port)
	if err != nil {
		return nil, fmt.Errorf("failed to create status server: %w", err)
	}
	r.status = status

	info := models.NewShellInfo("localhost", status.Port(), os.Getpid())
	if err := config.SaveShellInfo(info); err != nil {
		status.Stop()
		return nil, fmt.Errorf("failed to write shell info: %w", err)
	}

	sup := &pidRecorder{
		Supervisor: daemon.NewSupervisor(daemon.Options{
			Binary:      settings.Daemon.Binary,
			Args:        settings.Daemon.Args,
			OnExit:      settings.Daemon.OnExit,
			StopTimeout: settings.Daemon.StopTimeout,
			OpenLog:     openDaemonLog,
		}),
		info: info,
	}
	client := daemon.NewClient(settings.Daemon.API, nil)

	opts := shell.Options{
		Settings:   settings,
		Supervisor: sup,
		Prober:     client,
		Identity:   client,
		Bridge:     r.bridge,
		Health:     status,
	}
	if headless {
		opts.Prompter = newConsolePrompter(os.Stdin, os.Stdout)
	} else {
		r.ui = tui.New()
		opts.Prompter = r.ui
		opts.Presenter = r.ui
	}
	r.app = shell.NewApp(opts)

	if settings.Bridge.Listen != "" {
		gw, err := server.NewGateway(settings.Bridge.Listen, r.bridge, r.app)
		if err != nil {
			status.Stop()
			_ = config.RemoveShellInfo()
			return nil, fmt.Errorf("failed to create bridge gateway: %w", err)
		}
		gw.ServeGRPCWeb(status.WebHandler())
		r.gateway = gw
	}

	w, err := watcher.New()
	if err != nil {
		log.Printf("Warning: settings will not reload: %v", err)
	} else {
		r.watcher = w
	}

	log.Printf("Harbor started on port %d (PID %d)", status.Port(), os.Getpid())
	return r, nil
}

// run starts everything and blocks until the shell exits. With the tray it
// occupies the calling goroutine, which must be the main one.
func (r *runner) run(withTray bool) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r.start(ctx)

	if withTray {
		tray.Run(r.app.Menu(),
			func(b tray.Backend) {
				if err := r.app.SetTrayBackend(b); err != nil {
					log.Printf("Failed to attach tray: %v", err)
				}
				go func() {
					<-r.app.Done()
					tray.Quit()
				}()
			},
			func(ev tray.Event) {
				if err := r.app.HandleTray(ev); err != nil {
					log.Printf("Failed to handle tray event: %v", err)
				}
			},
			func() { r.app.Exit(0) },
		)
	} else {
		<-r.app.Done()
	}

	code := r.app.ExitCode()
	r.stop()
	return code
}

func (r *runner) start(ctx context.Context) {
	go func() {
		if err := r.status.Serve(); err != nil {
			log.Printf("Status server error: %v", err)
		}
	}()

	if r.gateway != nil {
		go func() {
			if err := r.gateway.Serve(); err != nil {
				log.Printf("Bridge gateway error: %v", err)
			}
		}()
		log.Printf("Bridge gateway listening on %s", r.gateway.Addr())
	}

	if r.watcher != nil {
		if err := r.watcher.Start(); err != nil {
			log.Printf("Warning: settings will not reload: %v", err)
		} else {
			go r.reloadSettings()
		}
	}

	r.app.Start(ctx)

	if r.ui != nil {
		go func() {
			defer close(r.uiDone)
			if err := r.ui.Run(ctx, r.app, r.bridge); err != nil {
				log.Printf("Terminal UI error: %v", err)
			}
		}()
	} else {
		close(r.uiDone)
	}

	// Handle OS signals: exit the shell on SIGINT/SIGTERM
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, shutting down...", sig)
			r.app.Exit(0)
		case <-r.app.Done():
		}
	}()
}

// reloadSettings applies settings file edits to the running shell.
func (r *runner) reloadSettings() {
	for {
		select {
		case <-r.app.Done():
			return
		case ev := <-r.watcher.Events():
			settings := models.NewSettings()
			if ev.Type == watcher.EventSettingsChanged {
				loaded, err := config.LoadSettings()
				if err != nil {
					log.Printf("Failed to reload settings: %v", err)
					continue
				}
				settings = loaded
			}
			if err := r.app.ApplySettings(settings); err != nil {
				log.Printf("Failed to apply settings: %v", err)
			}
		}
	}
}

func (r *runner) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), r.settings.Daemon.StopTimeout+2*time.Second)
	defer cancel()

	if r.ui != nil {
		r.ui.Quit()
	}
	select {
	case <-r.uiDone:
	case <-ctx.Done():
	}

	if r.watcher != nil {
		r.watcher.Stop()
	}
	if err := r.app.Close(ctx); err != nil {
		log.Printf("Failed to close shell: %v", err)
	}
	if r.gateway != nil {
		if err := r.gateway.Stop(ctx); err != nil {
			log.Printf("Failed to stop bridge gateway: %v", err)
		}
	}
	r.status.Stop()

	if err := config.RemoveShellInfo(); err != nil {
		log.Printf("Failed to remove shell info: %v", err)
	}
}

// openDaemonLog gives each daemon launch its own log file under
// ~/.harbor/logs.
func openDaemonLog(path string, args []string) (io.WriteCloser, error) {
	f, entry, err := config.CreateDaemonLog(path, args, time.Now())
	if err != nil {
		return nil, err
	}
	log.Printf("Daemon output goes to %s", entry.Path)
	return f, nil
}

// pidRecorder keeps daemon_pid in shell.yaml in step with the supervised
// process.
type pidRecorder struct {
	*daemon.Supervisor

	mu   sync.Mutex
	info *models.ShellInfo
}

// SetOnChange records every transition before passing it on to fn.
func (p *pidRecorder) SetOnChange(fn func(daemon.Status)) {
	p.Supervisor.SetOnChange(func(st daemon.Status) {
		p.record(st)
		if fn != nil {
			fn(st)
		}
	})
}

func (p *pidRecorder) record(st daemon.Status) {
	pid := 0
	if st.State == daemon.StateRunning {
		pid = st.PID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.info == nil || p.info.DaemonPID == pid {
		return
	}
	p.info.DaemonPID = pid
	if err := config.SaveShellInfo(p.info); err != nil {
		log.Printf("Failed to update shell info: %v", err)
	}
}
