package models

import "time"

// ShellInfo represents the running shell instance.
// This corresponds to ~/.harbor/shell.yaml.
type ShellInfo struct {
	Version   int       `yaml:"version" json:"version"`
	Host      string    `yaml:"host" json:"host"`
	Port      int       `yaml:"port" json:"port"`
	PID       int       `yaml:"pid" json:"pid"`
	DaemonPID int       `yaml:"daemon_pid,omitempty" json:"daemon_pid,omitempty"`
	StartedAt time.Time `yaml:"started_at" json:"started_at"`
}

// NewShellInfo creates a new shell info with current values.
func NewShellInfo(host string, port, pid int) *ShellInfo {
	return &ShellInfo{
		Version:   1,
		Host:      host,
		Port:      port,
		PID:       pid,
		StartedAt: time.Now().UTC(),
	}
}
