//go:build windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// killProcess only supports existence probes and forced termination; Windows
// has no catchable termination signal.
func killProcess(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return syscall.ESRCH
	}
	defer func() { _ = p.Release() }()
	switch sig {
	case 0:
		return nil
	case syscall.SIGKILL:
		return p.Kill()
	default:
		return errors.ErrUnsupported
	}
}
