//go:build !windows

package daemon

import (
	"os"
	"syscall"
)

// gracefulTerminate sends SIGTERM to the process for graceful shutdown.
func gracefulTerminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// sysProcAttr puts the daemon in its own process group so terminal signals
// aimed at the shell (Ctrl+C) don't reach it.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
