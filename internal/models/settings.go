package models

import "time"

// Exit policies for the daemon when the shell exits.
const (
	OnExitDetach    = "detach"
	OnExitTerminate = "terminate"
)

// DaemonConfig describes how the sidecar daemon is launched and reached.
type DaemonConfig struct {
	Binary       string        `yaml:"binary"`        // bare name = sidecar lookup, else a path
	Args         []string      `yaml:"args"`
	API          string        `yaml:"api"`           // control API base URL
	OnExit       string        `yaml:"on_exit"`       // "detach" | "terminate"
	StopTimeout  time.Duration `yaml:"stop_timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// ReadinessConfig holds the readiness probe retry budget.
type ReadinessConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
}

// ShutdownConfig holds the close confirmation settings.
type ShutdownConfig struct {
	Confirm bool   `yaml:"confirm"`
	Title   string `yaml:"title"`
	Message string `yaml:"message"`
}

// BridgeConfig configures the websocket gateway. Empty Listen disables it.
type BridgeConfig struct {
	Listen string `yaml:"listen"`
}

// StatusConfig configures the gRPC status server.
type StatusConfig struct {
	Port int `yaml:"port"` // 0 = dynamic
}

// Settings represents global application settings.
// This corresponds to ~/.harbor/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Readiness ReadinessConfig `yaml:"readiness"`
	Shutdown  ShutdownConfig  `yaml:"shutdown"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Status    StatusConfig    `yaml:"status"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Daemon: DaemonConfig{
			Binary:       "ipfs",
			Args:         []string{"daemon"},
			API:          "http://127.0.0.1:5001",
			OnExit:       OnExitDetach,
			StopTimeout:  5 * time.Second,
			ProbeTimeout: 2 * time.Second,
		},
		Readiness: ReadinessConfig{
			MaxAttempts: 300,
			Interval:    100 * time.Millisecond,
		},
		Shutdown: ShutdownConfig{
			Confirm: true,
			Title:   "Harbor",
			Message: "Are you sure that you want to close this window?",
		},
	}
}

// Normalize fills zero values left by a partial settings file with defaults.
func (s *Settings) Normalize() {
	def := NewSettings()
	if s.Version == 0 {
		s.Version = def.Version
	}
	if s.Daemon.Binary == "" {
		s.Daemon.Binary = def.Daemon.Binary
	}
	if s.Daemon.Args == nil {
		s.Daemon.Args = def.Daemon.Args
	}
	if s.Daemon.API == "" {
		s.Daemon.API = def.Daemon.API
	}
	if s.Daemon.OnExit != OnExitTerminate {
		s.Daemon.OnExit = OnExitDetach
	}
	if s.Daemon.StopTimeout <= 0 {
		s.Daemon.StopTimeout = def.Daemon.StopTimeout
	}
	if s.Daemon.ProbeTimeout <= 0 {
		s.Daemon.ProbeTimeout = def.Daemon.ProbeTimeout
	}
	if s.Readiness.MaxAttempts <= 0 {
		s.Readiness.MaxAttempts = def.Readiness.MaxAttempts
	}
	if s.Readiness.Interval <= 0 {
		s.Readiness.Interval = def.Readiness.Interval
	}
	if s.Shutdown.Title == "" {
		s.Shutdown.Title = def.Shutdown.Title
	}
	if s.Shutdown.Message == "" {
		s.Shutdown.Message = def.Shutdown.Message
	}
}
