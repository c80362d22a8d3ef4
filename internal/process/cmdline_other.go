//go:build !linux

package process

import (
	"errors"
	"fmt"
	"slices"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// readCmdline asks the OS process table (sysctl on Darwin/BSD) for the
// command line of pid, space separated.
func readCmdline(pid int) (string, error) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, gopsproc.ErrorProcessNotRunning) {
			return "", fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
		}
		return "", fmt.Errorf("lookup pid %d: %w", pid, err)
	}
	if isZombie(pid) {
		return "", fmt.Errorf("pid %d exited: %w", pid, ErrProcessNotFound)
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return "", fmt.Errorf("read cmdline for pid %d: %w", pid, err)
	}
	return cmdline, nil
}

func isZombie(pid int) bool {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	st, err := p.Status()
	if err != nil {
		return false
	}
	return slices.Contains(st, gopsproc.Zombie)
}
