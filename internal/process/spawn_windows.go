//go:build windows

package process

import (
	"errors"
	"fmt"
)

// Spawn is not available on Windows: there is no session or descriptor
// model to detach the child into.
func Spawn(executable string, args []string, output string) (int, error) {
	if _, err := BuildArgv(executable, args); err != nil {
		return 0, err
	}
	if err := validateOutput(output); err != nil {
		return 0, err
	}
	return 0, &SpawnError{Executable: executable, Err: fmt.Errorf("daemonize: %w", errors.ErrUnsupported)}
}

// RunChildIfRequested is a no-op on Windows.
func RunChildIfRequested() {}
