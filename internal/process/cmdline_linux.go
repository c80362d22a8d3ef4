package process

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"syscall"
)

// procRoot is the procfs mount point.
var procRoot = "/proc"

// readCmdline returns the raw NUL-separated command line of pid. Missing and
// zombie processes both report ErrProcessNotFound.
func readCmdline(pid int) (string, error) {
	b, err := os.ReadFile(procPath(pid, "cmdline"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ESRCH) {
			return "", fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
		}
		return "", fmt.Errorf("read cmdline for pid %d: %w", pid, err)
	}
	if isZombie(pid) {
		return "", fmt.Errorf("pid %d exited: %w", pid, ErrProcessNotFound)
	}
	return string(b), nil
}

// isZombie returns true if /proc/<pid>/status reports a zombie state (Z).
func isZombie(pid int) bool {
	b, err := os.ReadFile(procPath(pid, "status"))
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}

func procPath(pid int, name string) string {
	return procRoot + "/" + strconv.Itoa(pid) + "/" + name
}
