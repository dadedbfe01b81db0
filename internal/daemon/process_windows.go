//go:build windows

package daemon

import (
	"os"
	"syscall"
)

// gracefulTerminate kills the process; Windows has no SIGTERM equivalent for
// console-less children.
func gracefulTerminate(p *os.Process) error {
	return p.Kill()
}

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}
