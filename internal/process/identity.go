package process

import (
	"fmt"
	"strings"
)

// Identify runs the existence and identity checks of Terminate without
// sending any signal. It returns nil when pid is alive and its command line
// contains identity.
func Identify(pid int, identity string) error {
	if pid <= 0 {
		return fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	cmdline, err := readCmdline(pid)
	if err != nil {
		return err
	}
	return matchIdentity(pid, cmdline, identity)
}

func matchIdentity(pid int, cmdline, identity string) error {
	if !strings.Contains(cmdline, identity) {
		return fmt.Errorf("pid %d: %w", pid, ErrIdentityMismatch)
	}
	return nil
}
