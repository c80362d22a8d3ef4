package detector

import (
	"errors"
	"fmt"

	"github.com/loykin/easyd/internal/process"
)

// Detector is a strategy that determines if a process is running.
// It must be safe for concurrent use.
type Detector interface {
	// Alive returns true if the process is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}

// IdentityDetector reports a pid as alive only while its command line still
// contains Identity, so a recycled pid reads as not running.
type IdentityDetector struct {
	PID      int
	Identity string
}

func (d IdentityDetector) Alive() (bool, error) {
	err := process.Identify(d.PID, d.Identity)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, process.ErrProcessNotFound), errors.Is(err, process.ErrIdentityMismatch):
		return false, nil
	default:
		return false, err
	}
}

func (d IdentityDetector) Describe() string {
	return fmt.Sprintf("pid:%d identity:%s", d.PID, d.Identity)
}

// Status is what the registry knows about a daemon combined with what the
// process table says.
type Status string

const (
	StatusRunning  Status = "running"  // pid alive and matching
	StatusDead     Status = "dead"     // pid recorded but gone
	StatusMismatch Status = "mismatch" // pid reused by another program
	StatusStopped  Status = "stopped"  // no pid recorded
	StatusUnknown  Status = "unknown"  // the process table could not be read
)

// Check classifies a registry entry holding pid for a program identified by
// identity. A pid of 0 means nothing was started.
func Check(pid int, identity string) Status {
	if pid == 0 {
		return StatusStopped
	}
	err := process.Identify(pid, identity)
	switch {
	case err == nil:
		return StatusRunning
	case errors.Is(err, process.ErrProcessNotFound):
		return StatusDead
	case errors.Is(err, process.ErrIdentityMismatch):
		return StatusMismatch
	default:
		return StatusUnknown
	}
}
