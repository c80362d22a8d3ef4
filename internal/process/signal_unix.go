//go:build !windows

package process

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcess sends sig to a single process; sig 0 only probes existence.
func killProcess(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
